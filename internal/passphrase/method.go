package passphrase

// Method identifies a cipher suite.
type Method string

const (
	// MethodAES derives the key with SHA-256 and encrypts with AES-256-GCM.
	MethodAES Method = "aes"
)

func (m Method) String() string {
	return string(m)
}

// IsValid reports whether the method is implemented.
func (m Method) IsValid() bool {
	switch m {
	case MethodAES:
		return true
	default:
		return false
	}
}

// Methods returns every implemented method.
func Methods() []Method {
	return []Method{MethodAES}
}
