package models

// Partition is a named, independently cached view of the catalog.
type Partition string

const (
	PartitionBaseOnly       Partition = "base-only"
	PartitionWithAlternates Partition = "with-alternates"
)

// AllPartitions returns every cache partition
func AllPartitions() []Partition {
	return []Partition{
		PartitionBaseOnly,
		PartitionWithAlternates,
	}
}

// PartitionFor picks the partition serving a catalog request.
func PartitionFor(includeAlternates bool) Partition {
	if includeAlternates {
		return PartitionWithAlternates
	}
	return PartitionBaseOnly
}

// IncludesAlternates reports whether the partition carries alternate art cards.
func (p Partition) IncludesAlternates() bool {
	return p == PartitionWithAlternates
}
