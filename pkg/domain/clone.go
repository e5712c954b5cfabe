package domain

// Clone returns a deep copy of the document.
//
// This is the copy-on-write boundary used by the store: the committed document is
// never handed to a mutator, only its clone. Nothing in the result aliases d.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{
		Version:    d.Version,
		LockedCore: d.LockedCore,
		Scenes:     make([]SceneCard, len(d.Scenes)),
		Techniques: make([]Technique, len(d.Techniques)),
		Runs:       make([]Run, len(d.Runs)),
		Variants:   make([]Variant, len(d.Variants)),
	}
	copy(out.Scenes, d.Scenes)
	copy(out.Techniques, d.Techniques)
	for i, r := range d.Runs {
		out.Runs[i] = r.Clone()
	}
	for i, v := range d.Variants {
		out.Variants[i] = v.Clone()
	}
	return out
}

// Clone returns a copy of the run with its pointer fields duplicated.
func (r Run) Clone() Run {
	out := r
	if r.BestVariantID != nil {
		id := *r.BestVariantID
		out.BestVariantID = &id
	}
	if r.RootSeed != nil {
		seed := *r.RootSeed
		out.RootSeed = &seed
	}
	return out
}

// Clone returns a copy of the variant with its pointer fields duplicated.
func (v Variant) Clone() Variant {
	out := v
	if v.QCBreakdown != nil {
		b := *v.QCBreakdown
		out.QCBreakdown = &b
	}
	if v.QCScore != nil {
		s := *v.QCScore
		out.QCScore = &s
	}
	return out
}
