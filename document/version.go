package document

// versionTracker counts observed content mutations. Version 0 is the content
// the controller was created with.
type versionTracker struct {
	v uint64
}

func (t *versionTracker) current() uint64 { return t.v }

// advance is called once per observed mutation and once per synthetic
// re-stamp.
func (t *versionTracker) advance() uint64 {
	t.v++
	return t.v
}
