package entity

// NativeElement is an opaque handle to a live DOM element. Only the driver that
// produced it can interpret it.
type NativeElement any

// SearchResult is the outcome of one resolution attempt. It is never cached:
// the page may have changed since.
type SearchResult struct {
	Element NativeElement
	Total   int
}

func (r SearchResult) Found() bool { return r.Element != nil }

// HomePage maps a page object identity to the URL it is opened at.
type HomePage struct {
	PageType       string `yaml:"pageObjectType"`
	URL            string `yaml:"url"`
	FileSystemPath bool   `yaml:"isFileSystemPath"`
}
