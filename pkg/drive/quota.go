package drive

import "github.com/marmos91/dittodrive/pkg/store/metadata"

// Quota is the per-owner storage limit policy. A limit of 0 means unlimited.
type Quota struct {
	defaultLimit int64
	perOwner     map[string]int64
}

// NewQuota creates a quota policy. perOwner entries override defaultLimit.
func NewQuota(defaultLimit int64, perOwner map[string]int64) *Quota {
	q := &Quota{defaultLimit: defaultLimit, perOwner: make(map[string]int64, len(perOwner))}
	for owner, limit := range perOwner {
		q.perOwner[owner] = limit
	}
	return q
}

// Limit returns the byte limit for ownerID (0 = unlimited).
func (q *Quota) Limit(ownerID string) int64 {
	if limit, ok := q.perOwner[ownerID]; ok {
		return limit
	}
	return q.defaultLimit
}

// Allows reports whether adding size bytes keeps ownerID within its limit.
// Trashed records still occupy storage and are counted.
func (q *Quota) Allows(ownerID string, used, size int64) bool {
	limit := q.Limit(ownerID)
	return limit <= 0 || used+size <= limit
}

// UsedBytes sums the sizes of records.
func UsedBytes(records []*metadata.FileRecord) int64 {
	var used int64
	for _, r := range records {
		used += r.Size
	}
	return used
}
