package conf

const (
	// DefaultGSABaseURL is the GSA per diem API v2 endpoint.
	DefaultGSABaseURL = "https://api.gsa.gov/travel/perdiem/v2"

	// Encodings accepted for CSV sources.
	EncodingUTF8    = "utf-8"
	EncodingUTF8SIG = "utf-8-sig"
	EncodingCP1252  = "cp1252"
	EncodingLatin1  = "latin1"

	maskedValue = "********"

	configDirName = "perdiem-go"
)
