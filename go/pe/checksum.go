package pe

func fold(sum uint64) uint64 {
	return (sum & 0xffff) + (sum >> 16)
}

// Checksum computes the optional header checksum over the current buffer,
// skipping the checksum field itself.
func (f *File) Checksum() uint32 {
	buf := f.Buffer
	skip := f.Header.CheckSum.Offset
	var sum uint64
	for i := 0; i < len(buf); {
		if i == skip {
			i += f.Header.CheckSum.Size
			continue
		}
		if i+1 < len(buf) {
			sum += uint64(buf[i]) | uint64(buf[i+1])<<8
			i += 2
		} else {
			sum += uint64(buf[i])
			break
		}
	}
	sum = fold(fold(sum))
	sum += uint64(len(buf))
	sum = fold(fold(sum))
	for sum>>16 != 0 {
		sum = fold(sum)
	}
	return uint32(sum)
}

// UpdateChecksum recomputes the checksum and stores it in the header.
func (f *File) UpdateChecksum() error {
	return f.Header.CheckSum.Update(f.Buffer, f.Checksum())
}
