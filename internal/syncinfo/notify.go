package syncinfo

import "strings"

// Notification kinds recorded in the Notify file.
const (
	NotifyEdit   byte = 'E'
	NotifyUnedit byte = 'U'
	NotifyCommit byte = 'C'
)

// NotifyInfo is one pending edit/unedit notification for a file, keyed by
// file name within its folder.
type NotifyInfo struct {
	Name      string
	Type      byte // NotifyEdit, NotifyUnedit, or NotifyCommit
	Timestamp string
	Watches   string // subset of "EUC" the editor asked to watch
}

// ParseNotifyLine decodes one Notify record: <type><name>/<timestamp>/<watches>.
func ParseNotifyLine(line string) (*NotifyInfo, error) {
	if len(line) < 2 {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: 0, Reason: "notify record too short"}
	}
	typ := line[0]
	if typ != NotifyEdit && typ != NotifyUnedit && typ != NotifyCommit {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: 0, Reason: "unknown notification type"}
	}
	parts := strings.Split(line[1:], "/")
	if len(parts) < 3 {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: len(line), Reason: "expected 3 notify fields"}
	}
	if parts[0] == "" {
		return nil, &MalformedSyncRecordError{Record: []byte(line), Offset: 1, Reason: "empty name"}
	}
	return &NotifyInfo{
		Name:      parts[0],
		Type:      typ,
		Timestamp: parts[1],
		Watches:   parts[2],
	}, nil
}

// Line renders the record as one Notify file line.
func (n *NotifyInfo) Line() string {
	return string(n.Type) + n.Name + "/" + n.Timestamp + "/" + n.Watches
}
