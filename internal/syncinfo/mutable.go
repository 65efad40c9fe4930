package syncinfo

import "strings"

// ResourceSync is the decoded, immutable view of a resource-sync record.
// Extra fields beyond the known five survive a decode/encode round trip.
type ResourceSync struct {
	Name      string
	Revision  string
	Timestamp string
	Options   string // raw keyword-mode field, e.g. "-kb"
	TagField  string // raw sticky-tag field, e.g. "Tv1_0"
	Folder    bool
	extra     []string
}

// Decode parses sync bytes into a ResourceSync.
func Decode(syncBytes []byte) (*ResourceSync, error) {
	if IsFolder(syncBytes) {
		name, err := field(syncBytes, fieldName)
		if err != nil {
			return nil, err
		}
		if name == "" {
			return nil, &MalformedSyncRecordError{Record: syncBytes, Offset: 1, Reason: "empty name"}
		}
		return &ResourceSync{Name: name, Folder: true}, nil
	}
	parts, err := split(syncBytes)
	if err != nil {
		return nil, err
	}
	rs := &ResourceSync{
		Name:      parts[fieldName],
		Revision:  parts[fieldRevision],
		Timestamp: parts[fieldTimestamp],
		Options:   parts[fieldOptions],
		TagField:  parts[fieldTag],
	}
	if rs.Name == "" {
		return nil, &MalformedSyncRecordError{Record: syncBytes, Offset: 1, Reason: "empty name"}
	}
	if len(parts) > numFields {
		rs.extra = parts[numFields:]
	}
	return rs, nil
}

// Encode renders the record back to sync bytes. Decode followed by Encode
// reproduces the input exactly.
func (rs *ResourceSync) Encode() []byte {
	if rs.Folder {
		return []byte("D/" + rs.Name + "////")
	}
	parts := []string{"", rs.Name, rs.Revision, rs.Timestamp, rs.Options, rs.TagField}
	parts = append(parts, rs.extra...)
	return []byte(strings.Join(parts, "/"))
}

// IsAddition reports whether the record describes a local addition.
func (rs *ResourceSync) IsAddition() bool {
	return rs.Revision == AddedRevision
}

// IsDeletion reports whether the record is in deletion form.
func (rs *ResourceSync) IsDeletion() bool {
	return strings.HasPrefix(rs.Revision, deletionPrefix)
}

// KeywordMode returns the decoded keyword-substitution mode.
func (rs *ResourceSync) KeywordMode() KeywordMode {
	return ParseKeywordMode(rs.Options)
}

// Tag returns the decoded sticky tag, nil for HEAD.
func (rs *ResourceSync) Tag() *Tag {
	return ParseEntryTag(rs.TagField)
}
