package ustar

import (
	"github.com/meigma/ustar/internal/pathutil"
	"github.com/meigma/ustar/internal/tartype"
)

// Header is the metadata of a single archive entry.
type Header = tartype.Header

// Format selects the on-disk header profile.
type Format = tartype.Format

// Format constants.
const (
	FormatUnspecified = tartype.FormatUnspecified
	FormatV7          = tartype.FormatV7
	FormatUSTAR       = tartype.FormatUSTAR
)

// Type flags.
const (
	TypeReg     = tartype.TypeReg
	TypeRegA    = tartype.TypeRegA
	TypeLink    = tartype.TypeLink
	TypeSymlink = tartype.TypeSymlink
	TypeChar    = tartype.TypeChar
	TypeBlock   = tartype.TypeBlock
	TypeDir     = tartype.TypeDir
	TypeFifo    = tartype.TypeFifo
	TypeCont    = tartype.TypeCont
)

// BlockSize is the size of a header record and the payload alignment unit.
const BlockSize = 512

// NormalizePath converts a user-provided path to the form entry names are compared in.
var NormalizePath = pathutil.Normalize
