package types

// Quality is the stream fidelity tier derived from the account
// entitlement once after login. It never changes for a session.
type Quality int

const (
	QualityHigh Quality = iota
	QualityVeryHigh
)

func (q Quality) String() string {
	switch q {
	case QualityHigh:
		return "HIGH"
	case QualityVeryHigh:
		return "VERY_HIGH"
	}

	return "unknown"
}

// Bitrate maps the stream tier to the target encoding bitrate.
func (q Quality) Bitrate() string {
	if q == QualityVeryHigh {
		return "320k"
	}

	return "160k"
}
