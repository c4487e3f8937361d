// internal/profiling/binary.go
package profiling

import (
	"debug/elf"
	"fmt"
	"os"
	"strings"
)

// BinaryAnalysis is the size/section report for one compiled artifact.
// Interpreted targets carry only the total size; section data is an ELF
// concern and its absence is not an error.
type BinaryAnalysis struct {
	Path           string           `json:"path"`
	TotalSizeBytes int64            `json:"total_size_bytes"`
	Format         string           `json:"format"`
	Stripped       bool             `json:"stripped"`
	Sections       SectionBreakdown `json:"sections"`
}

// SectionBreakdown groups ELF section sizes by their role.
type SectionBreakdown struct {
	TextBytes   uint64 `json:"text_bytes"`
	DataBytes   uint64 `json:"data_bytes"`
	RodataBytes uint64 `json:"rodata_bytes"`
	BssBytes    uint64 `json:"bss_bytes"`
	DebugBytes  uint64 `json:"debug_bytes"`
	SymbolBytes uint64 `json:"symbol_bytes"`
	OtherBytes  uint64 `json:"other_bytes"`
}

// AnalyzeBinary inspects an artifact's size and section layout without
// executing it.
func AnalyzeBinary(path string) (*BinaryAnalysis, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("binary analysis: %w", err)
	}

	analysis := &BinaryAnalysis{
		Path:           path,
		TotalSizeBytes: info.Size(),
		Format:         "other",
	}

	file, err := elf.Open(path)
	if err != nil {
		// Not an ELF artifact (interpreted script, bytecode, ...).
		return analysis, nil
	}
	defer file.Close()

	analysis.Format = "elf"
	analysis.Stripped = true

	for _, section := range file.Sections {
		if section.Name == ".symtab" {
			analysis.Stripped = false
		}
		classifySection(section.Name, section.Size, &analysis.Sections)
	}

	return analysis, nil
}

func classifySection(name string, size uint64, breakdown *SectionBreakdown) {
	switch {
	case name == ".text" || strings.HasPrefix(name, ".text."):
		breakdown.TextBytes += size
	case name == ".rodata" || strings.HasPrefix(name, ".rodata."):
		breakdown.RodataBytes += size
	case name == ".bss" || strings.HasPrefix(name, ".bss."):
		breakdown.BssBytes += size
	case name == ".data" || strings.HasPrefix(name, ".data.") || strings.HasPrefix(name, ".got"):
		breakdown.DataBytes += size
	case strings.HasPrefix(name, ".debug"):
		breakdown.DebugBytes += size
	case name == ".symtab" || name == ".strtab" || name == ".shstrtab" || strings.HasPrefix(name, ".dynsym") || strings.HasPrefix(name, ".dynstr"):
		breakdown.SymbolBytes += size
	default:
		breakdown.OtherBytes += size
	}
}
