package model

// CodeCap is the longest instrument code a Code can hold.
const CodeCap = 32

// Code is a fixed-size, zero padded instrument code ("600000", "rb2410", "IF2409").
type Code [CodeCap]byte

// NewCode truncates s to CodeCap bytes.
func NewCode(s string) Code {
	var c Code
	copy(c[:], s)
	return c
}

func (c Code) String() string {
	return string(c.AppendBytes(make([]byte, 0, CodeCap)))
}

func (c Code) IsEmpty() bool {
	return c[0] == 0
}

func (c Code) Len() int {
	for i := range c {
		if c[i] == 0 {
			return i
		}
	}
	return CodeCap
}

func (c Code) AppendBytes(buf []byte) []byte {
	return append(buf, c[:c.Len()]...)
}
