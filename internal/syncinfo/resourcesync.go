// Package syncinfo encodes and decodes the per-resource synchronization
// records of the CVS control-file family.
//
// A resource-sync record travels as "sync bytes": the exact byte content of
// one Entries line, e.g.
//
//	/main.c/1.4/Mon Feb  2 12:03:41 2004/-kb/Tv1_0
//	D/src////
//
// Accessors operate on the raw bytes and preserve fields they do not
// understand, so encode(decode(b)) == b for any well-formed b.
package syncinfo

import (
	"bytes"
	"fmt"
	"strings"
)

// Field layout of a file entry line: /name/revision/timestamp/options/tag.
const (
	fieldName = iota + 1
	fieldRevision
	fieldTimestamp
	fieldOptions
	fieldTag
	numFields
)

// AddedRevision is the sentinel revision of a just-added entry. It is also
// the substitute value callers use when a record is malformed.
const AddedRevision = "0"

// deletionPrefix marks a revision scheduled for removal from the repository.
const deletionPrefix = "-"

// folderPrefix starts a folder entry line.
const folderPrefix = "D/"

// MalformedSyncRecordError reports a sync-bytes sequence that does not parse.
type MalformedSyncRecordError struct {
	Record []byte
	Offset int
	Reason string
}

func (e *MalformedSyncRecordError) Error() string {
	return fmt.Sprintf("malformed sync record at offset %d: %s: %q", e.Offset, e.Reason, e.Record)
}

// split breaks sync bytes into slash-separated fields. A well-formed file
// line has at least numFields parts (the first is empty); extra parts are
// carried through untouched.
func split(syncBytes []byte) ([]string, error) {
	s := string(syncBytes)
	if strings.HasPrefix(s, folderPrefix) || s == "D" {
		return nil, nil
	}
	if !strings.HasPrefix(s, "/") {
		return nil, &MalformedSyncRecordError{Record: syncBytes, Offset: 0, Reason: "missing leading slash"}
	}
	parts := strings.Split(s, "/")
	if len(parts) < numFields {
		return nil, &MalformedSyncRecordError{
			Record: syncBytes,
			Offset: len(s),
			Reason: fmt.Sprintf("expected %d fields, got %d", numFields-1, len(parts)-1),
		}
	}
	return parts, nil
}

func field(syncBytes []byte, idx int) (string, error) {
	parts, err := split(syncBytes)
	if err != nil {
		return "", err
	}
	if parts == nil {
		// Folder form: D/name////. Only the name is meaningful.
		s := strings.TrimPrefix(string(syncBytes), "D")
		folderParts := strings.Split(s, "/")
		if idx == fieldName && len(folderParts) > fieldName {
			return folderParts[fieldName], nil
		}
		return "", nil
	}
	return parts[idx], nil
}

// NameOf returns the resource name recorded in the sync bytes.
func NameOf(syncBytes []byte) (string, error) {
	name, err := field(syncBytes, fieldName)
	if err != nil {
		return "", err
	}
	if name == "" {
		return "", &MalformedSyncRecordError{Record: syncBytes, Offset: 1, Reason: "empty name"}
	}
	return name, nil
}

// RevisionOf returns the revision recorded in the sync bytes, without any
// deletion prefix.
func RevisionOf(syncBytes []byte) (string, error) {
	rev, err := field(syncBytes, fieldRevision)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(rev, deletionPrefix), nil
}

// TimestampOf returns the raw timestamp field. Merge markers and dummy
// timestamps are preserved verbatim.
func TimestampOf(syncBytes []byte) (string, error) {
	return field(syncBytes, fieldTimestamp)
}

// KeywordModeOf returns the keyword-substitution mode recorded in the
// options field.
func KeywordModeOf(syncBytes []byte) (KeywordMode, error) {
	opt, err := field(syncBytes, fieldOptions)
	if err != nil {
		return KeywordMode{}, err
	}
	return ParseKeywordMode(opt), nil
}

// TagOf returns the sticky tag recorded in the sync bytes, or nil for HEAD.
func TagOf(syncBytes []byte) (*Tag, error) {
	raw, err := field(syncBytes, fieldTag)
	if err != nil {
		return nil, err
	}
	return ParseEntryTag(raw), nil
}

// IsFolder reports whether the sync bytes describe a folder entry.
func IsFolder(syncBytes []byte) bool {
	return bytes.HasPrefix(syncBytes, []byte("D")) &&
		(len(syncBytes) == 1 || syncBytes[1] == '/')
}

// IsAddition reports whether the sync bytes describe a locally added
// resource not yet known to the repository.
func IsAddition(syncBytes []byte) bool {
	rev, err := field(syncBytes, fieldRevision)
	return err == nil && rev == AddedRevision
}

// IsDeletion reports whether the sync bytes describe a resource scheduled
// for deletion from the repository.
func IsDeletion(syncBytes []byte) bool {
	rev, err := field(syncBytes, fieldRevision)
	return err == nil && strings.HasPrefix(rev, deletionPrefix)
}

// ConvertToDeletion returns a copy of the sync bytes with the revision in
// deletion form. Converting an already-deleted record is a no-op.
func ConvertToDeletion(syncBytes []byte) ([]byte, error) {
	parts, err := split(syncBytes)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		return nil, &MalformedSyncRecordError{Record: syncBytes, Offset: 0, Reason: "cannot delete a folder entry"}
	}
	if !strings.HasPrefix(parts[fieldRevision], deletionPrefix) {
		parts[fieldRevision] = deletionPrefix + parts[fieldRevision]
	}
	return []byte(strings.Join(parts, "/")), nil
}

// ConvertFromDeletion strips the deletion marker, restoring the record to
// its normal form.
func ConvertFromDeletion(syncBytes []byte) ([]byte, error) {
	parts, err := split(syncBytes)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		return syncBytes, nil
	}
	parts[fieldRevision] = strings.TrimPrefix(parts[fieldRevision], deletionPrefix)
	return []byte(strings.Join(parts, "/")), nil
}

// SetRevision returns a copy of the sync bytes with the revision replaced.
func SetRevision(syncBytes []byte, revision string) ([]byte, error) {
	parts, err := split(syncBytes)
	if err != nil {
		return nil, err
	}
	if parts == nil {
		return nil, &MalformedSyncRecordError{Record: syncBytes, Offset: 0, Reason: "folder entries carry no revision"}
	}
	parts[fieldRevision] = revision
	return []byte(strings.Join(parts, "/")), nil
}
