package resourcefs

import "os"

// OpenOptions selects how a file is opened. The zero value opens nothing;
// set Read for a plain read.
type OpenOptions struct {
	Read     bool
	Write    bool
	Create   bool
	Append   bool
	Truncate bool
}

var (
	readOptions   = OpenOptions{Read: true}
	createOptions = OpenOptions{Write: true, Create: true, Truncate: true}
	appendOptions = OpenOptions{Write: true, Create: true, Append: true}
)

// Mutating reports whether the options could modify the store.
func (o OpenOptions) Mutating() bool {
	return o.Write || o.Create || o.Append || o.Truncate
}

// Flags converts the options into os.OpenFile flags.
func (o OpenOptions) Flags() int {
	writes := o.Write || o.Append
	var flag int
	switch {
	case o.Read && writes:
		flag = os.O_RDWR
	case writes:
		flag = os.O_WRONLY
	default:
		flag = os.O_RDONLY
	}
	if o.Create {
		flag |= os.O_CREATE
	}
	if o.Append {
		flag |= os.O_APPEND
	}
	if o.Truncate {
		flag |= os.O_TRUNC
	}
	return flag
}
