package db

import (
	"errors"

	codec "github.com/brown-csci1270/bloomdb/pkg/codec"
	filter "github.com/brown-csci1270/bloomdb/pkg/filter"
	memory "github.com/brown-csci1270/bloomdb/pkg/memory"
	registry "github.com/brown-csci1270/bloomdb/pkg/registry"
)

// Every failure a command can report. The message of each is the one-line
// reply a client sees.
var (
	ErrOutOfMemory      = memory.ErrOutOfMemory
	ErrWrongParamType   = errors.New("incorrect param type")
	ErrKeyAlreadyExists = registry.ErrKeyAlreadyExists
	ErrKeyNotFound      = registry.ErrKeyNotFound
	ErrInvalidParams    = filter.ErrInvalidParams
	ErrDecodeFailure    = codec.ErrDecodeFailure
)
