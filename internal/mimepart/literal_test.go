package mimepart

import "bytes"

type literal struct {
	*bytes.Reader
}

func (l literal) Len() int {
	return int(l.Reader.Size())
}

func bytesLiteral(s string) literal {
	return literal{bytes.NewReader([]byte(s))}
}
