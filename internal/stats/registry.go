package stats

import "sort"

// Registry is an append-only sink for per-frame metrics, keyed by frame index
// and metric name. One writer (the scene manager) appends monotonically by
// increasing frame index; readers consume it after a scan completes.
type Registry struct {
	keys    []string
	keySet  map[string]bool
	metrics map[int64]map[string]float64
}

// NewRegistry creates an empty metric registry.
func NewRegistry() *Registry {
	return &Registry{
		keySet:  make(map[string]bool),
		metrics: make(map[int64]map[string]float64),
	}
}

// RegisterKeys declares metric names ahead of recording so the CSV column
// order is stable. Re-registering a known key is a no-op, which lets multiple
// detectors of the same kind share a registry.
func (r *Registry) RegisterKeys(keys ...string) {
	for _, key := range keys {
		if r.keySet[key] {
			continue
		}
		r.keySet[key] = true
		r.keys = append(r.keys, key)
	}
}

// Keys returns the registered metric names in registration order.
func (r *Registry) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Record stores one metric value for a frame.
func (r *Registry) Record(frameNum int64, key string, value float64) {
	if !r.keySet[key] {
		r.RegisterKeys(key)
	}
	row, ok := r.metrics[frameNum]
	if !ok {
		row = make(map[string]float64, len(r.keys))
		r.metrics[frameNum] = row
	}
	row[key] = value
}

// Get returns the stored value for (frame, key), if any.
func (r *Registry) Get(frameNum int64, key string) (float64, bool) {
	row, ok := r.metrics[frameNum]
	if !ok {
		return 0, false
	}
	v, ok := row[key]
	return v, ok
}

// Has reports whether a value exists for (frame, key).
func (r *Registry) Has(frameNum int64, key string) bool {
	_, ok := r.Get(frameNum, key)
	return ok
}

// HasAll reports whether every given key has a value for the frame.
func (r *Registry) HasAll(frameNum int64, keys []string) bool {
	if len(keys) == 0 {
		return false
	}
	for _, key := range keys {
		if !r.Has(frameNum, key) {
			return false
		}
	}
	return true
}

// FrameCount returns the number of frames with at least one recorded metric.
func (r *Registry) FrameCount() int {
	return len(r.metrics)
}

// frameNumbers returns all recorded frame indices in increasing order.
func (r *Registry) frameNumbers() []int64 {
	nums := make([]int64, 0, len(r.metrics))
	for n := range r.metrics {
		nums = append(nums, n)
	}
	sort.Slice(nums, func(i, j int) bool { return nums[i] < nums[j] })
	return nums
}
