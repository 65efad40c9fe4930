package syncinfo

// KeywordMode is a keyword-substitution mode from an entry's options field.
// The zero value is the default text mode (-kkv with no explicit option).
type KeywordMode struct {
	option string
}

// Known substitution modes.
var (
	ModeText     = KeywordMode{""}
	ModeTextKKV  = KeywordMode{"-kkv"}
	ModeTextKKVL = KeywordMode{"-kkvl"}
	ModeTextKO   = KeywordMode{"-ko"}
	ModeTextKK   = KeywordMode{"-kk"}
	ModeTextKV   = KeywordMode{"-kv"}
	ModeBinary   = KeywordMode{"-kb"}
)

// ParseKeywordMode interprets a raw options field. Unknown options are
// preserved so records round-trip.
func ParseKeywordMode(option string) KeywordMode {
	return KeywordMode{option: option}
}

// Option returns the raw options field ("" for default text mode).
func (m KeywordMode) Option() string { return m.option }

// IsBinary reports whether the mode suppresses keyword expansion and line
// ending translation.
func (m KeywordMode) IsBinary() bool { return m.option == "-kb" }

func (m KeywordMode) String() string {
	if m.option == "" {
		return "(text)"
	}
	return m.option
}
