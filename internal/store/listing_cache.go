package store

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"github.com/Jaguar1-alt/Gigconnect/internal/models"
)

const listingGenKey = "gigconnect:gigs:gen"

// ListingCache keeps open gig search results in memcached. Every gig
// mutation bumps a generation counter so stale pages fall out of use.
type ListingCache struct {
	mc  *memcache.Client
	ttl time.Duration
}

func NewMemcache(addr string) *memcache.Client {
	return memcache.New(addr)
}

func NewListingCache(mc *memcache.Client, ttl time.Duration) *ListingCache {
	return &ListingCache{mc: mc, ttl: ttl}
}

func (c *ListingCache) generation() string {
	it, err := c.mc.Get(listingGenKey)
	if err != nil {
		if !errors.Is(err, memcache.ErrCacheMiss) {
			logrus.WithError(err).Warn("listing cache generation lookup failed")
		}
		return "0"
	}
	return string(it.Value)
}

func (c *ListingCache) Get(f models.GigFilter) ([]models.Gig, bool) {
	it, err := c.mc.Get(ListingKey(c.generation(), f))
	if err != nil {
		return nil, false
	}
	var gigs []models.Gig
	if err := json.Unmarshal(it.Value, &gigs); err != nil {
		return nil, false
	}
	return gigs, true
}

func (c *ListingCache) Set(f models.GigFilter, gigs []models.Gig) {
	b, err := json.Marshal(gigs)
	if err != nil {
		return
	}
	err = c.mc.Set(&memcache.Item{
		Key:        ListingKey(c.generation(), f),
		Value:      b,
		Expiration: int32(c.ttl.Seconds()),
	})
	if err != nil {
		logrus.WithError(err).Warn("listing cache write failed")
	}
}

func (c *ListingCache) Invalidate() {
	_, err := c.mc.Increment(listingGenKey, 1)
	if errors.Is(err, memcache.ErrCacheMiss) {
		err = c.mc.Set(&memcache.Item{Key: listingGenKey, Value: []byte("1")})
	}
	if err != nil {
		logrus.WithError(err).Warn("listing cache invalidation failed")
	}
}

// ListingKey hashes the normalized filter so equivalent queries share a key.
func ListingKey(gen string, f models.GigFilter) string {
	skills := make([]string, 0, len(f.Skills))
	for _, s := range f.Skills {
		skills = append(skills, strings.ToLower(strings.TrimSpace(s)))
	}
	sort.Strings(skills)

	var b strings.Builder
	b.WriteString(strings.Join(skills, ","))
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(f.Location)))
	b.WriteByte('|')
	if f.MaxBudget != nil {
		b.WriteString(strconv.FormatInt(*f.MaxBudget, 10))
	}

	sum := xxh3.HashString128(b.String()).Bytes()
	return "gigconnect:gigs:" + gen + ":" + hex.EncodeToString(sum[:])
}
