// Copyright 2026 The Holdq Authors
// SPDX-License-Identifier: Apache-2.0

package queue

import (
	"log/slog"
	"sort"

	"github.com/holdq/holdq/lib/metrics"
	"github.com/holdq/holdq/presence"
)

// Throttler keeps the number of loaded regions under a cap by
// unloading the regions furthest from a reference point. Regions at
// equal distance keep the order the host listed them in, so the later
// one is unloaded first.
type Throttler struct {
	adapter presence.Adapter
	metrics *metrics.Sink
	logger  *slog.Logger
}

// NewThrottler returns a Throttler acting through adapter.
func NewThrottler(adapter presence.Adapter, sink *metrics.Sink, logger *slog.Logger) *Throttler {
	return &Throttler{adapter: adapter, metrics: sink, logger: logger}
}

// Enforce unloads regions until at most limit remain loaded, furthest
// from reference first. Returns the number unloaded.
func (t *Throttler) Enforce(reference presence.Point, limit int) int {
	regions, ok := t.loaded()
	if !ok || len(regions) <= limit {
		return 0
	}

	type ranked struct {
		region   presence.Region
		distance float64
	}
	ranking := make([]ranked, len(regions))
	for i, region := range regions {
		x, z := region.Center()
		dx, dz := x-reference.X, z-reference.Z
		ranking[i] = ranked{region: region, distance: dx*dx + dz*dz}
	}
	sort.SliceStable(ranking, func(i, j int) bool { return ranking[i].distance < ranking[j].distance })

	unloaded := 0
	for i := len(ranking) - 1; i >= max(limit, 0); i-- {
		if t.unload(ranking[i].region) {
			unloaded++
		}
	}
	t.record("enforced region cap", unloaded, "limit", limit, "loaded", len(regions))
	return unloaded
}

// TrimAround unloads every region more than one region away, on either
// axis, from the region containing reference. Returns the number
// unloaded.
func (t *Throttler) TrimAround(reference presence.Point) int {
	regions, ok := t.loaded()
	if !ok {
		return 0
	}
	center := presence.RegionOf(reference)
	unloaded := 0
	for _, region := range regions {
		if abs(region.X-center.X) <= 1 && abs(region.Z-center.Z) <= 1 {
			continue
		}
		if t.unload(region) {
			unloaded++
		}
	}
	t.record("trimmed regions around reference", unloaded, "center", center)
	return unloaded
}

func (t *Throttler) loaded() ([]presence.Region, bool) {
	if !t.adapter.Supports(presence.CapRegions) {
		t.logger.Debug("region management skipped, unsupported by host")
		return nil, false
	}
	regions, err := t.adapter.LoadedRegions()
	if err != nil {
		t.metrics.Inc(metrics.Errors)
		t.logger.Warn("listing loaded regions failed", "error", err)
		return nil, false
	}
	return regions, true
}

func (t *Throttler) unload(region presence.Region) bool {
	if err := t.adapter.UnloadRegion(region); err != nil {
		t.metrics.Inc(metrics.Errors)
		t.logger.Warn("unloading region failed", "region", region, "error", err)
		return false
	}
	return true
}

func (t *Throttler) record(message string, unloaded int, attrs ...any) {
	if unloaded == 0 {
		return
	}
	t.metrics.Add(metrics.ChunksUnloaded, int64(unloaded))
	t.logger.Debug(message, append([]any{"unloaded", unloaded}, attrs...)...)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
