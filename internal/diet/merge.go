package diet

// CategorySet is the set of distinct categories collected from a food's
// ingredients. The zero value is an empty set ready to use.
type CategorySet uint16

func NewCategorySet(cs ...Category) CategorySet {
	var s CategorySet
	for _, c := range cs {
		s = s.Add(c)
	}
	return s
}

func (s CategorySet) Add(c Category) CategorySet {
	return s | 1<<c
}

func (s CategorySet) Has(c Category) bool {
	return s&(1<<c) != 0
}

func (s CategorySet) Empty() bool {
	return s == 0
}

// Merge combines the categories of a food's ingredients into one category.
// The guards are evaluated in order and the first match wins; the result
// does not depend on the order in which ingredients were added.
func Merge(s CategorySet) Category {
	switch {
	case s.Has(Omni):
		return Omni
	case s.Has(VegetarianOrOmni):
		return VegetarianOrOmni
	case s.Has(VeganVegetarianOrOmni) && s.Has(Vegetarian):
		return VegetarianOrOmni
	case s.Has(VeganVegetarianOrOmni):
		return VeganVegetarianOrOmni
	case s.Has(VeganOrOmni) && s.Has(Vegetarian):
		return VegetarianOrOmni
	case s.Has(VeganOrOmni):
		return VeganOrOmni
	case s.Has(Vegetarian):
		return Vegetarian
	case s.Has(VeganOrVegetarian):
		return VeganOrVegetarian
	case s.Has(Vegan):
		return Vegan
	default:
		return Uncategorized
	}
}

// MergeAll is Merge over a slice.
func MergeAll(cs ...Category) Category {
	return Merge(NewCategorySet(cs...))
}

// possibility is the set of diets a category leaves open.
type possibility uint8

const (
	mayBeVegan possibility = 1 << iota
	mayBeVegetarian
	mayBeOmni
)

var possibilities = map[Category]possibility{
	Vegan:                 mayBeVegan,
	VeganOrVegetarian:     mayBeVegan | mayBeVegetarian,
	Vegetarian:            mayBeVegetarian,
	VeganOrOmni:           mayBeVegan | mayBeOmni,
	VeganVegetarianOrOmni: mayBeVegan | mayBeVegetarian | mayBeOmni,
	VegetarianOrOmni:      mayBeVegetarian | mayBeOmni,
	Omni:                  mayBeOmni,
}

func fromPossibility(p possibility) Category {
	for c, q := range possibilities {
		if p == q {
			return c
		}
	}
	return Uncategorized
}

// WithoutOmni rules out the omnivore reading of c. A category that only
// allowed OMNI becomes VEGAN_OR_VEGETARIAN, e.g. "meatless burger".
func WithoutOmni(c Category) Category {
	p, ok := possibilities[c]
	if !ok {
		return c
	}
	p &^= mayBeOmni
	if p == 0 {
		return VeganOrVegetarian
	}
	return fromPossibility(p)
}

// WithoutOmniAndVegetarian rules out every reading but vegan.
func WithoutOmniAndVegetarian(c Category) Category {
	if _, ok := possibilities[c]; !ok {
		return c
	}
	return Vegan
}
