package scanner

import (
	"io/fs"
)

// typeFromMode determines the entry type from a mode that was read
// without following symlinks
func typeFromMode(mode fs.FileMode) EntryType {
	switch {
	case mode.IsRegular():
		return TypeFile
	case mode.IsDir():
		return TypeDir
	case mode&fs.ModeSymlink != 0:
		return TypeSymlink
	default:
		return TypeUnknown
	}
}
