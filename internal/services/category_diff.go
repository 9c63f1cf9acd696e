package services

// CategoryDiff buckets the categories of an edit by how their aggregate row
// must change. The buckets are disjoint and each category appears exactly
// once, no matter which of the three slots it occupied on either side.
type CategoryDiff struct {
	// Added: present after the edit only. The row gains the full new amount.
	Added []string
	// Kept: present on both sides. The row moves by the signed amount diff.
	Kept []string
	// Removed: present before the edit only. The row loses the full old
	// amount.
	Removed []string
}

// DiffCategories computes the three-way set diff between the old and new
// category slots. Inputs are the non-empty slots; duplicates within one side
// are collapsed so no category is counted twice.
func DiffCategories(oldCats, newCats []string) CategoryDiff {
	inOld := toSet(oldCats)
	inNew := toSet(newCats)

	var d CategoryDiff
	seen := map[string]bool{}
	for _, c := range newCats {
		if seen[c] {
			continue
		}
		seen[c] = true
		if inOld[c] {
			d.Kept = append(d.Kept, c)
		} else {
			d.Added = append(d.Added, c)
		}
	}
	seen = map[string]bool{}
	for _, c := range oldCats {
		if seen[c] {
			continue
		}
		seen[c] = true
		if !inNew[c] {
			d.Removed = append(d.Removed, c)
		}
	}
	return d
}

func toSet(cats []string) map[string]bool {
	set := make(map[string]bool, len(cats))
	for _, c := range cats {
		set[c] = true
	}
	return set
}
