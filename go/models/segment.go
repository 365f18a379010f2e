package models

import "fmt"

// SegmentData is a format-independent view of a loadable region: an ELF
// PT_LOAD program header, a PE section or a Mach-O segment.
type SegmentData struct {
	Name       string
	Off        uint64
	FileSize   uint64
	Addr, Size uint64
	Prot       int
	DataFunc   func() ([]byte, error)
}

func (s *SegmentData) Data() ([]byte, error) {
	if s.DataFunc == nil {
		return nil, nil
	}
	return s.DataFunc()
}

func (s *SegmentData) ContainsPhys(off uint64) bool {
	return s.Off <= off && off < s.Off+s.FileSize
}

func (s *SegmentData) ContainsVirt(addr uint64) bool {
	return s.Addr <= addr && addr < s.Addr+s.Size
}

// VirtToPhys maps addr inside the segment to its file offset. Addresses in the
// zero-filled tail past FileSize have no file backing.
func (s *SegmentData) VirtToPhys(addr uint64) (uint64, bool) {
	if !s.ContainsVirt(addr) || addr-s.Addr >= s.FileSize {
		return 0, false
	}
	return s.Off + (addr - s.Addr), true
}

const (
	PROT_READ  = 1
	PROT_WRITE = 2
	PROT_EXEC  = 4
)

func ProtString(prot int) string {
	b := []byte("---")
	if prot&PROT_READ != 0 {
		b[0] = 'r'
	}
	if prot&PROT_WRITE != 0 {
		b[1] = 'w'
	}
	if prot&PROT_EXEC != 0 {
		b[2] = 'x'
	}
	return string(b)
}

func (s *SegmentData) String() string {
	return fmt.Sprintf("%-16s off=0x%08x filesz=0x%08x addr=0x%012x size=0x%08x %s",
		s.Name, s.Off, s.FileSize, s.Addr, s.Size, ProtString(s.Prot))
}
