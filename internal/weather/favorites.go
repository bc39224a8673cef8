package weather

// Favorites is an ordered set of locations keyed by case-sensitive name.
type Favorites []Location

// Add appends loc unless a favorite with the same name exists; the first
// write wins.
func (f Favorites) Add(loc Location) Favorites {
	if _, ok := f.Find(loc.Name); ok {
		return f
	}
	out := make(Favorites, 0, len(f)+1)
	out = append(out, f...)
	return append(out, loc)
}

// Remove drops the favorite with the given name. Unknown names are a no-op.
func (f Favorites) Remove(name string) Favorites {
	out := make(Favorites, 0, len(f))
	for _, loc := range f {
		if loc.Name != name {
			out = append(out, loc)
		}
	}
	return out
}

func (f Favorites) Find(name string) (Location, bool) {
	for _, loc := range f {
		if loc.Name == name {
			return loc, true
		}
	}
	return Location{}, false
}
