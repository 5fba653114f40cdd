package gitfs

// Capability of a namespace, as advertised to file system frameworks
type Capability string

// Capabilities
const (
	CapCreate           Capability = "create"
	CapDelete           Capability = "delete"
	CapRename           Capability = "rename"
	CapGetType          Capability = "get-type"
	CapListChildren     Capability = "list-children"
	CapReadContent      Capability = "read-content"
	CapLastModified     Capability = "get-last-modified"
	CapWriteContent     Capability = "write-content"
	CapAppendContent    Capability = "append-content"
	CapRandomAccessRead Capability = "random-access-read"
)

var (
	readCapabilities = []Capability{
		CapGetType,
		CapListChildren,
		CapReadContent,
		CapLastModified,
		CapRandomAccessRead,
	}

	writeCapabilities = []Capability{
		CapCreate,
		CapDelete,
		CapRename,
		CapWriteContent,
		CapAppendContent,
	}
)

// Capabilities of this namespace. Namespaces without a working tree are read-only.
func (ns *Namespace) Capabilities() []Capability {
	caps := make([]Capability, 0, len(readCapabilities)+len(writeCapabilities))
	caps = append(caps, readCapabilities...)
	if err := ns.ensureHandle(); err != nil || ns.work == nil {
		return caps
	}
	return append(caps, writeCapabilities...)
}

// Can tells if the namespace supports some capability
func (ns *Namespace) Can(c Capability) bool {
	for _, supported := range ns.Capabilities() {
		if supported == c {
			return true
		}
	}
	return false
}
