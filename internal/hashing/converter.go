package hashing

// DictionaryConverter maps hash vectors to the sparse per-position encoding
// stored in the index. Zero-valued positions are never emitted, so a stored
// zero and a missing position decode identically.
type DictionaryConverter struct{}

// NewDictionaryConverter returns the converter.
func NewDictionaryConverter() DictionaryConverter {
	return DictionaryConverter{}
}

// ToSparseMap returns one entry per non-zero position.
func (DictionaryConverter) ToSparseMap(hashes []int64) map[int]int64 {
	sparse := make(map[int]int64, len(hashes))
	for i, v := range hashes {
		if v != 0 {
			sparse[i] = v
		}
	}
	return sparse
}

// FromSparseMap rebuilds a vector of the given length. Absent positions are
// zero; positions outside [0, length) are dropped.
func (DictionaryConverter) FromSparseMap(sparse map[int]int64, length int) []int64 {
	hashes := make([]int64, length)
	for i, v := range sparse {
		if i >= 0 && i < length {
			hashes[i] = v
		}
	}
	return hashes
}
