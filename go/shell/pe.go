package shell

import (
	"os"

	"github.com/pkg/errors"

	"github.com/M3str3/HexSpell/go/pe"
)

const defaultCharacteristics = pe.IMAGE_SCN_CNT_CODE | pe.IMAGE_SCN_MEM_EXECUTE | pe.IMAGE_SCN_MEM_READ

var AddSectionCmd = cmd(&Command{
	Name: "addsection",
	Desc: "Append a PE section: addsection <name> <payload file> [characteristics]",
	Run: func(c *Context, name, path string, args ...string) error {
		f, err := peFile(c)
		if err != nil {
			return err
		}
		payload, err := os.ReadFile(path)
		if err != nil {
			return errors.WithStack(err)
		}
		chars := uint64(defaultCharacteristics)
		if len(args) > 0 {
			if chars, err = parseUint(args[0]); err != nil {
				return err
			}
		}
		if chars > 0xffffffff {
			return errors.Errorf("characteristics %#x do not fit in 32 bits", chars)
		}
		if uint64(len(payload)) > 0xffffffff {
			return errors.Errorf("payload of %d bytes is too large", len(payload))
		}
		s, err := f.GenerateSectionHeader(name, uint32(len(payload)), uint32(chars))
		if err != nil {
			return err
		}
		if err := c.Edit(func() error { return f.AddSection(s, payload) }); err != nil {
			return err
		}
		c.Printf("added %s at rva %#x, raw %#x+%#x\n", name,
			s.VirtualAddress.Value, s.PointerToRawData.Value, s.SizeOfRawData.Value)
		return nil
	},
})

var ChecksumCmd = cmd(&Command{
	Name: "checksum",
	Desc: "Show the PE checksum, or store a fresh one with 'checksum fix'.",
	Run: func(c *Context, args ...string) error {
		f, err := peFile(c)
		if err != nil {
			return err
		}
		sum := f.Checksum()
		if len(args) > 0 && args[0] == "fix" {
			if err := c.Edit(f.UpdateChecksum); err != nil {
				return err
			}
		}
		status := "ok"
		if f.Header.CheckSum.Value != sum {
			status = "stale"
		}
		c.Printf("stored %#08x computed %#08x %s\n", f.Header.CheckSum.Value, sum, status)
		return nil
	},
})
