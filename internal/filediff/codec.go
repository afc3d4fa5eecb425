package filediff

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"

	"filediff/internal/edits"
	"filediff/internal/gitdiff"
)

// Encoded values start with a format byte followed by fields. Each field is
// a uvarint tag, a uvarint payload length and the payload. Decoders skip
// tags they do not know and leave absent fields at their zero value.
const codecVersion = 1

var errCorrupt = errors.New("corrupt encoding")

const (
	keyTagProject = iota + 1
	keyTagOldCommit
	keyTagNewCommit
	keyTagPath
	keyTagRenameScore
	keyTagAlgorithm
	keyTagWhitespace
)

const (
	outTagOldCommit = iota + 1
	outTagNewCommit
	outTagComparisonKind
	outTagParentNum
	outTagOldPath
	outTagNewPath
	outTagOldMode
	outTagNewMode
	outTagChangeType
	outTagPatchType
	outTagHeaderLine
	outTagEdit
	outTagSize
	outTagSizeDelta
	outTagNegative
)

// EncodeKey returns the deterministic binary form of k.
func EncodeKey(k Key) []byte {
	e := newEncoder()
	e.string(keyTagProject, k.Project)
	e.hash(keyTagOldCommit, k.OldCommit)
	e.hash(keyTagNewCommit, k.NewCommit)
	e.string(keyTagPath, k.NewFilePath)
	e.varint(keyTagRenameScore, int64(k.RenameScore))
	e.string(keyTagAlgorithm, k.Algorithm.String())
	e.string(keyTagWhitespace, k.Whitespace.String())
	return e.buf
}

// DecodeKey parses the output of EncodeKey.
func DecodeKey(data []byte) (Key, error) {
	var k Key
	err := decodeFields(data, func(tag uint64, p []byte) error {
		var err error
		switch tag {
		case keyTagProject:
			k.Project = string(p)
		case keyTagOldCommit:
			k.OldCommit, err = decodeHash(p)
		case keyTagNewCommit:
			k.NewCommit, err = decodeHash(p)
		case keyTagPath:
			k.NewFilePath = string(p)
		case keyTagRenameScore:
			var v int64
			v, err = decodeVarint(p)
			k.RenameScore = int(v)
		case keyTagAlgorithm:
			k.Algorithm, err = gitdiff.ParseAlgorithm(string(p))
		case keyTagWhitespace:
			k.Whitespace, err = gitdiff.ParseWhitespace(string(p))
		}
		return err
	})
	if err != nil {
		return Key{}, fmt.Errorf("failed to decode key: %w", err)
	}
	return k, nil
}

// StoreKey names k in a durable store.
func StoreKey(k Key) string {
	sum := sha256.Sum256(EncodeKey(k))
	return hex.EncodeToString(sum[:])
}

// EncodeOutput returns the binary form of o. Empty paths, absent modes, a
// missing patch type and a false negative flag are not written.
func EncodeOutput(o FileDiffOutput) []byte {
	e := newEncoder()
	e.hash(outTagOldCommit, o.OldCommit)
	e.hash(outTagNewCommit, o.NewCommit)
	e.varint(outTagComparisonKind, int64(o.ComparisonType.Kind))
	if o.ComparisonType.Kind == Parent {
		e.varint(outTagParentNum, int64(o.ComparisonType.ParentNum))
	}
	if o.OldPath != "" {
		e.string(outTagOldPath, o.OldPath)
	}
	if o.NewPath != "" {
		e.string(outTagNewPath, o.NewPath)
	}
	if o.OldMode != filemode.Empty {
		e.varint(outTagOldMode, int64(o.OldMode))
	}
	if o.NewMode != filemode.Empty {
		e.varint(outTagNewMode, int64(o.NewMode))
	}
	e.varint(outTagChangeType, int64(o.ChangeType))
	if o.PatchType != gitdiff.PatchNone {
		e.varint(outTagPatchType, int64(o.PatchType))
	}
	for _, line := range o.HeaderLines {
		e.string(outTagHeaderLine, line)
	}
	for _, te := range o.Edits {
		e.field(outTagEdit, encodeEdit(te))
	}
	e.varint(outTagSize, o.Size)
	e.varint(outTagSizeDelta, o.SizeDelta)
	if o.Negative {
		e.bool(outTagNegative, true)
	}
	return e.buf
}

// DecodeOutput parses the output of EncodeOutput.
func DecodeOutput(data []byte) (FileDiffOutput, error) {
	var o FileDiffOutput
	err := decodeFields(data, func(tag uint64, p []byte) error {
		var (
			v   int64
			err error
		)
		switch tag {
		case outTagOldCommit:
			o.OldCommit, err = decodeHash(p)
		case outTagNewCommit:
			o.NewCommit, err = decodeHash(p)
		case outTagComparisonKind:
			v, err = decodeVarint(p)
			o.ComparisonType.Kind = ComparisonKind(v)
		case outTagParentNum:
			v, err = decodeVarint(p)
			o.ComparisonType.ParentNum = int(v)
		case outTagOldPath:
			o.OldPath = string(p)
		case outTagNewPath:
			o.NewPath = string(p)
		case outTagOldMode:
			v, err = decodeVarint(p)
			o.OldMode = filemode.FileMode(v)
		case outTagNewMode:
			v, err = decodeVarint(p)
			o.NewMode = filemode.FileMode(v)
		case outTagChangeType:
			v, err = decodeVarint(p)
			o.ChangeType = gitdiff.ChangeType(v)
		case outTagPatchType:
			v, err = decodeVarint(p)
			o.PatchType = gitdiff.PatchType(v)
		case outTagHeaderLine:
			o.HeaderLines = append(o.HeaderLines, string(p))
		case outTagEdit:
			var te TaggedEdit
			te, err = decodeEdit(p)
			o.Edits = append(o.Edits, te)
		case outTagSize:
			o.Size, err = decodeVarint(p)
		case outTagSizeDelta:
			o.SizeDelta, err = decodeVarint(p)
		case outTagNegative:
			o.Negative = len(p) == 1 && p[0] == 1
		}
		return err
	})
	if err != nil {
		return FileDiffOutput{}, fmt.Errorf("failed to decode output: %w", err)
	}
	return o, nil
}

func encodeEdit(te TaggedEdit) []byte {
	var buf []byte
	for _, v := range []int{te.Edit.BeginA, te.Edit.EndA, te.Edit.BeginB, te.Edit.EndB} {
		buf = binary.AppendVarint(buf, int64(v))
	}
	if te.DueToRebase {
		return append(buf, 1)
	}
	return append(buf, 0)
}

func decodeEdit(p []byte) (TaggedEdit, error) {
	var vals [4]int
	for i := range vals {
		v, n := binary.Varint(p)
		if n <= 0 {
			return TaggedEdit{}, errCorrupt
		}
		vals[i] = int(v)
		p = p[n:]
	}
	if len(p) != 1 {
		return TaggedEdit{}, errCorrupt
	}
	return TaggedEdit{
		Edit:        edits.Edit{BeginA: vals[0], EndA: vals[1], BeginB: vals[2], EndB: vals[3]},
		DueToRebase: p[0] == 1,
	}, nil
}

type encoder struct {
	buf []byte
}

func newEncoder() *encoder {
	return &encoder{buf: []byte{codecVersion}}
}

func (e *encoder) field(tag uint64, payload []byte) {
	e.buf = binary.AppendUvarint(e.buf, tag)
	e.buf = binary.AppendUvarint(e.buf, uint64(len(payload)))
	e.buf = append(e.buf, payload...)
}

func (e *encoder) string(tag uint64, s string) {
	e.field(tag, []byte(s))
}

func (e *encoder) hash(tag uint64, h plumbing.Hash) {
	e.field(tag, h[:])
}

func (e *encoder) varint(tag uint64, v int64) {
	e.field(tag, binary.AppendVarint(nil, v))
}

func (e *encoder) bool(tag uint64, v bool) {
	if v {
		e.field(tag, []byte{1})
		return
	}
	e.field(tag, []byte{0})
}

// decodeFields calls fn for every field of data in order.
func decodeFields(data []byte, fn func(tag uint64, payload []byte) error) error {
	if len(data) == 0 {
		return errCorrupt
	}
	if data[0] != codecVersion {
		return fmt.Errorf("unsupported format version %d", data[0])
	}
	data = data[1:]
	for len(data) > 0 {
		tag, n := binary.Uvarint(data)
		if n <= 0 {
			return errCorrupt
		}
		data = data[n:]
		size, n := binary.Uvarint(data)
		if n <= 0 || size > uint64(len(data)-n) {
			return errCorrupt
		}
		data = data[n:]
		if err := fn(tag, data[:size]); err != nil {
			return err
		}
		data = data[size:]
	}
	return nil
}

func decodeHash(p []byte) (plumbing.Hash, error) {
	var h plumbing.Hash
	if len(p) != len(h) {
		return h, errCorrupt
	}
	copy(h[:], p)
	return h, nil
}

func decodeVarint(p []byte) (int64, error) {
	v, n := binary.Varint(p)
	if n <= 0 || n != len(p) {
		return 0, errCorrupt
	}
	return v, nil
}
