package model

import "regexp"

var (
	// SubfolderPattern is the grammar every namespace tag must satisfy.
	SubfolderPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// FilenamePattern is the grammar accepted by the retriever.
	FilenamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	// StoredNamePattern is the grammar of every name the sanitizer produces.
	StoredNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+\.[a-zA-Z0-9]+$`)
)

// Access is the read policy of a subfolder.
type Access int

const (
	AccessAuthenticated Access = iota
	AccessPublic
)

// Namespace maps subfolder tags to their read policy. It is built once at
// startup and only read afterwards.
type Namespace map[string]Access

// NewNamespace registers every tag in subfolders, marking the ones listed
// in public as publicly readable. Tags that do not match SubfolderPattern
// are skipped.
func NewNamespace(subfolders, public []string) Namespace {
	ns := make(Namespace, len(subfolders)+len(public))
	for _, s := range subfolders {
		if SubfolderPattern.MatchString(s) {
			ns[s] = AccessAuthenticated
		}
	}
	for _, s := range public {
		if SubfolderPattern.MatchString(s) {
			ns[s] = AccessPublic
		}
	}
	return ns
}

// Has reports whether tag is a registered subfolder.
func (n Namespace) Has(tag string) bool {
	_, ok := n[tag]
	return ok
}

// IsPublic reports whether tag is readable without authentication.
func (n Namespace) IsPublic(tag string) bool {
	return n[tag] == AccessPublic && n.Has(tag)
}
