package hssp

type Limits struct {
	MaxFiles    int    // entries per archive or volume
	MaxBodySize uint64 // body bytes after decryption and decompression
}

func defaultLimits() Limits {
	return Limits{
		MaxFiles:    1 << 20,
		MaxBodySize: 4 << 30, // 4 GiB
	}
}

func (l Limits) withDefaults() Limits {
	d := defaultLimits()
	if l.MaxFiles == 0 {
		l.MaxFiles = d.MaxFiles
	}
	if l.MaxBodySize == 0 {
		l.MaxBodySize = d.MaxBodySize
	}
	return l
}
