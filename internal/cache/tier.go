package cache

import (
	"fmt"
	"time"
)

// Tier is a named staleness profile shared by many cache keys. An entry bound
// to a tier moves through three states as it ages:
//
//   - before StaleAfter the entry is Fresh and served as-is;
//   - between StaleAfter and RevalidateAfter the entry is Stale but still
//     served without triggering a refresh (the grace window);
//   - between RevalidateAfter and HardExpireAfter the entry is Stale, served
//     immediately, and a single background recomputation is scheduled;
//   - past HardExpireAfter the entry is Expired and is never returned without
//     a fresh synchronous recomputation completing first.
type Tier struct {
	Name            string
	StaleAfter      time.Duration
	RevalidateAfter time.Duration
	HardExpireAfter time.Duration
}

// NewTier validates the ordering invariant StaleAfter < RevalidateAfter <=
// HardExpireAfter. A tier that violates it makes reads meaningless, so
// construction fails fast: config load refuses to start the process.
func NewTier(name string, stale, revalidate, expire time.Duration) (Tier, error) {
	if name == "" {
		return Tier{}, fmt.Errorf("tier name is required")
	}
	if stale <= 0 {
		return Tier{}, fmt.Errorf("tier %q: stale-after must be positive, got %s", name, stale)
	}
	if revalidate <= stale {
		return Tier{}, fmt.Errorf("tier %q: revalidate-after (%s) must exceed stale-after (%s)", name, revalidate, stale)
	}
	if expire < revalidate {
		return Tier{}, fmt.Errorf("tier %q: hard-expire-after (%s) must be at least revalidate-after (%s)", name, expire, revalidate)
	}

	return Tier{
		Name:            name,
		StaleAfter:      stale,
		RevalidateAfter: revalidate,
		HardExpireAfter: expire,
	}, nil
}

// Tiers groups the three staleness profiles the authorization core uses.
type Tiers struct {
	// Short covers session and verification adjacent facts.
	Short Tier
	// Medium covers role facts and composite subject info.
	Medium Tier
	// Long covers expensive global facts such as admin existence.
	Long Tier
}

// TierDurations carries the externally configured durations for one tier.
type TierDurations struct {
	StaleAfter      time.Duration
	RevalidateAfter time.Duration
	HardExpireAfter time.Duration
}

// NewTiers builds the tier registry from configured durations, validating
// every tier's ordering invariant.
func NewTiers(short, medium, long TierDurations) (Tiers, error) {
	shortTier, err := NewTier("short", short.StaleAfter, short.RevalidateAfter, short.HardExpireAfter)
	if err != nil {
		return Tiers{}, err
	}

	mediumTier, err := NewTier("medium", medium.StaleAfter, medium.RevalidateAfter, medium.HardExpireAfter)
	if err != nil {
		return Tiers{}, err
	}

	longTier, err := NewTier("long", long.StaleAfter, long.RevalidateAfter, long.HardExpireAfter)
	if err != nil {
		return Tiers{}, err
	}

	return Tiers{Short: shortTier, Medium: mediumTier, Long: longTier}, nil
}

// DefaultTiers returns the registry with built-in durations. Deployments
// override all nine values through configuration.
func DefaultTiers() Tiers {
	tiers, err := NewTiers(
		TierDurations{StaleAfter: 30 * time.Second, RevalidateAfter: time.Minute, HardExpireAfter: 5 * time.Minute},
		TierDurations{StaleAfter: time.Minute, RevalidateAfter: 2 * time.Minute, HardExpireAfter: 15 * time.Minute},
		TierDurations{StaleAfter: 10 * time.Minute, RevalidateAfter: 30 * time.Minute, HardExpireAfter: 2 * time.Hour},
	)
	if err != nil {
		// The built-in durations satisfy the invariant; reaching this is a bug.
		panic(err)
	}
	return tiers
}
