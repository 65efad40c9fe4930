package syncinfo

import "strings"

// BaserevInfo records the revision a Base copy was taken from, keyed by file
// name within its folder. The on-disk form is B<name>/<revision>/.
type BaserevInfo struct {
	Name     string
	Revision string
}

// ParseBaserevLine decodes one Baserev record.
func ParseBaserevLine(line string) (*BaserevInfo, error) {
	if !strings.HasPrefix(line, "B") {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: 0, Reason: "missing B prefix"}
	}
	parts := strings.Split(line[1:], "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: len(line), Reason: "expected name and revision"}
	}
	return &BaserevInfo{Name: parts[0], Revision: parts[1]}, nil
}

// Line renders the record as one Baserev file line.
func (b *BaserevInfo) Line() string {
	return "B" + b.Name + "/" + b.Revision + "/"
}
