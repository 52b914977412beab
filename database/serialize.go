// lstore on-disk serialization
// Component: metadata.db / base_col_*/tail_col_* page files / page_directory.dat / version_chains.dat
//
// Grounded on original_source/lstore/db.py's save/load methods,
// translated struct-pack field for field: i32 lengths, i64 rids, i32
// page/slot indices, i8 present-flags, all little-endian via
// encoding/binary, matching the Python struct format codes exactly
// ('i', 'q', '?').

package database

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

func writeInt32(w io.Writer, v int32) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt32(r io.Reader) (int32, error) {
	var v int32
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

func writeInt64(w io.Writer, v int64) error {
	return binary.Write(w, binary.LittleEndian, v)
}

func readInt64(r io.Reader) (int64, error) {
	var v int64
	err := binary.Read(r, binary.LittleEndian, &v)
	return v, err
}

// writeMetadata writes metadata.db: table_count followed by each
// table's (name_len, name bytes, num_columns, key_col).
func writeMetadata(dir string, tables []*Table) error {
	f, err := os.Create(filepath.Join(dir, "metadata.db"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := writeInt32(w, int32(len(tables))); err != nil {
		return err
	}
	for _, t := range tables {
		s := t.Schema()
		nameBytes := []byte(s.Name)
		if err := writeInt32(w, int32(len(nameBytes))); err != nil {
			return err
		}
		if _, err := w.Write(nameBytes); err != nil {
			return err
		}
		if err := writeInt32(w, int32(s.NumColumns)); err != nil {
			return err
		}
		if err := writeInt32(w, int32(s.KeyColumn)); err != nil {
			return err
		}
	}
	return w.Flush()
}

// readMetadata reads metadata.db and returns each table's schema, or
// (nil, nil) if the file does not exist (matching the original's
// "no metadata file yet" early return).
func readMetadata(dir string) ([]Schema, error) {
	f, err := os.Open(filepath.Join(dir, "metadata.db"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	count, err := readInt32(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
	}
	schemas := make([]Schema, 0, count)
	for i := int32(0); i < count; i++ {
		nameLen, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := io.ReadFull(r, nameBytes); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
		}
		numColumns, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
		}
		keyColumn, err := readInt32(r)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptMetadata, err)
		}
		schemas = append(schemas, Schema{Name: string(nameBytes), NumColumns: int(numColumns), KeyColumn: int(keyColumn)})
	}
	return schemas, nil
}

// savePages writes one page_<n>.dat file per page in dir.
func savePages(dir string, pages []*Page) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, p := range pages {
		numRecords, raw := p.snapshot()
		f, err := os.Create(filepath.Join(dir, fmt.Sprintf("page_%d.dat", i)))
		if err != nil {
			return err
		}
		w := bufio.NewWriter(f)
		if err := writeInt32(w, int32(numRecords)); err != nil {
			f.Close()
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, raw); err != nil {
			f.Close()
			return err
		}
		if err := w.Flush(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	}
	return nil
}

// loadPages reads every page_<n>.dat file from dir in numeric order,
// returning a single empty page if dir does not exist, matching the
// original's "no directory yet" fallback.
func loadPages(dir string) ([]*Page, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []*Page{newPage()}, nil
	}
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".dat" {
			names = append(names, e.Name())
		}
	}
	sort.Slice(names, func(i, j int) bool {
		return pageFileNumber(names[i]) < pageFileNumber(names[j])
	})

	if len(names) == 0 {
		return []*Page{newPage()}, nil
	}

	pages := make([]*Page, 0, len(names))
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		r := bufio.NewReader(f)
		numRecords, err := readInt32(r)
		if err != nil {
			f.Close()
			return nil, err
		}
		var raw [PageSlots]int64
		if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
			f.Close()
			return nil, err
		}
		f.Close()
		p := newPage()
		p.restore(int(numRecords), raw)
		pages = append(pages, p)
	}
	return pages, nil
}

// pageFileNumber extracts n from "page_<n>.dat"; malformed names sort
// first.
func pageFileNumber(name string) int {
	var n int
	if _, err := fmt.Sscanf(name, "page_%d.dat", &n); err != nil {
		return -1
	}
	return n
}

// savePageDirectory writes page_directory.dat.
func savePageDirectory(tablePath string, t *Table) error {
	f, err := os.Create(filepath.Join(tablePath, "page_directory.dat"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	t.pdMu.Lock()
	defer t.pdMu.Unlock()

	if err := writeInt32(w, int32(len(t.pageDirectory))); err != nil {
		return err
	}
	for rid, positions := range t.pageDirectory {
		if err := writeInt64(w, int64(rid)); err != nil {
			return err
		}
		for _, pos := range positions {
			if err := writeInt32(w, int32(pos.PageIndex)); err != nil {
				return err
			}
			if err := writeInt32(w, int32(pos.SlotIndex)); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

// loadPageDirectory reads page_directory.dat into t, and advances
// t.ridCounter to the maximum rid seen, matching the original's
// "rid_counter = max(page_directory.keys())" restore step.
func loadPageDirectory(tablePath string, t *Table) error {
	f, err := os.Open(filepath.Join(tablePath, "page_directory.dat"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	count, err := readInt32(r)
	if err != nil {
		return err
	}

	var maxRID int64
	for i := int32(0); i < count; i++ {
		rid, err := readInt64(r)
		if err != nil {
			return err
		}
		positions := make([]PagePosition, t.numColumns)
		for c := 0; c < t.numColumns; c++ {
			pageIdx, err := readInt32(r)
			if err != nil {
				return err
			}
			slotIdx, err := readInt32(r)
			if err != nil {
				return err
			}
			positions[c] = PagePosition{PageIndex: int(pageIdx), SlotIndex: int(slotIdx)}
		}
		t.pageDirectory[RID(rid)] = positions
		if rid > maxRID {
			maxRID = rid
		}
	}
	if maxRID > t.ridCounter {
		t.ridCounter = maxRID
	}
	return nil
}

// saveVersionChains writes version_chains.dat.
func saveVersionChains(tablePath string, t *Table) error {
	f, err := os.Create(filepath.Join(tablePath, "version_chains.dat"))
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	t.vcMu.Lock()
	defer t.vcMu.Unlock()

	if err := writeInt32(w, int32(len(t.versionChain))); err != nil {
		return err
	}
	for rid, versions := range t.versionChain {
		if err := writeInt64(w, int64(rid)); err != nil {
			return err
		}
		if err := writeInt32(w, int32(len(versions))); err != nil {
			return err
		}
		for _, entry := range versions {
			for c := 0; c < t.numColumns; c++ {
				var pos *PagePosition
				if c < len(entry) {
					pos = entry[c]
				}
				present := byte(0)
				if pos != nil {
					present = 1
				}
				if err := w.WriteByte(present); err != nil {
					return err
				}
				if pos != nil {
					if err := writeInt32(w, int32(pos.PageIndex)); err != nil {
						return err
					}
					if err := writeInt32(w, int32(pos.SlotIndex)); err != nil {
						return err
					}
				}
			}
		}
	}
	return w.Flush()
}

// loadVersionChains reads version_chains.dat into t.
func loadVersionChains(tablePath string, t *Table) error {
	f, err := os.Open(filepath.Join(tablePath, "version_chains.dat"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	ridCount, err := readInt32(r)
	if err != nil {
		return err
	}

	for i := int32(0); i < ridCount; i++ {
		rid, err := readInt64(r)
		if err != nil {
			return err
		}
		versionCount, err := readInt32(r)
		if err != nil {
			return err
		}
		versions := make([]VersionEntry, 0, versionCount)
		for j := int32(0); j < versionCount; j++ {
			entry := make(VersionEntry, t.numColumns)
			for c := 0; c < t.numColumns; c++ {
				present, err := r.ReadByte()
				if err != nil {
					return err
				}
				if present != 0 {
					pageIdx, err := readInt32(r)
					if err != nil {
						return err
					}
					slotIdx, err := readInt32(r)
					if err != nil {
						return err
					}
					entry[c] = &PagePosition{PageIndex: int(pageIdx), SlotIndex: int(slotIdx)}
				}
			}
			versions = append(versions, entry)
		}
		t.versionChain[RID(rid)] = versions
	}
	return nil
}

// rebuildIndex scans the page directory and re-inserts every live
// row's primary-key value into a fresh index, matching the original's
// drop_index-then-create_index restore step. Secondary indexes are
// not restored.
func rebuildIndex(t *Table) {
	t.index = NewIndex(t.keyColumn, t.index.order)
	t.pdMu.Lock()
	defer t.pdMu.Unlock()
	for rid, positions := range t.pageDirectory {
		pos := positions[t.keyColumn]
		value := t.ReadColumn(t.keyColumn, pos.PageIndex, pos.SlotIndex)
		t.index.Insert(t.keyColumn, value, int64(rid))
	}
}

// saveTableData writes every column's base and tail pages, the page
// directory, and the version chain for t under dir/t.Name().
func saveTableData(dir string, t *Table) error {
	tablePath := filepath.Join(dir, t.Name())
	if err := os.MkdirAll(tablePath, 0o755); err != nil {
		return err
	}
	for c := 0; c < t.numColumns; c++ {
		if err := savePages(filepath.Join(tablePath, fmt.Sprintf("base_col_%d", c)), t.basePages[c]); err != nil {
			return err
		}
	}
	for c := 0; c < t.numColumns; c++ {
		if err := savePages(filepath.Join(tablePath, fmt.Sprintf("tail_col_%d", c)), t.tailPages[c]); err != nil {
			return err
		}
	}
	if err := savePageDirectory(tablePath, t); err != nil {
		return err
	}
	return saveVersionChains(tablePath, t)
}

// loadTableData populates an already-constructed table (built from
// its metadata.db schema entry) with page contents, directory,
// version chain, and a freshly rebuilt primary-key index.
func loadTableData(dir string, t *Table) error {
	tablePath := filepath.Join(dir, t.Name())
	if _, err := os.Stat(tablePath); os.IsNotExist(err) {
		return nil
	}

	for c := 0; c < t.numColumns; c++ {
		pages, err := loadPages(filepath.Join(tablePath, fmt.Sprintf("base_col_%d", c)))
		if err != nil {
			return err
		}
		t.basePages[c] = pages
	}
	for c := 0; c < t.numColumns; c++ {
		pages, err := loadPages(filepath.Join(tablePath, fmt.Sprintf("tail_col_%d", c)))
		if err != nil {
			return err
		}
		t.tailPages[c] = pages
	}
	if err := loadPageDirectory(tablePath, t); err != nil {
		return err
	}
	// Every allocated RID appended exactly one slot to column 0's base
	// pages, so their total slot count is the highest RID ever issued,
	// including rows deleted before the last Close.
	if t.numColumns > 0 {
		var allocated int64
		for _, p := range t.basePages[0] {
			allocated += int64(p.NumRecords())
		}
		if allocated > t.ridCounter {
			t.ridCounter = allocated
		}
	}
	if err := loadVersionChains(tablePath, t); err != nil {
		return err
	}
	rebuildIndex(t)
	return nil
}
