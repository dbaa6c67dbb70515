package ch

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"route_planner/pkg/graph"
)

const (
	magicBytes = "RPLANNER"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000

	flagDirected = uint32(1)
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic        [8]byte
	Version      uint32
	Flags        uint32
	NumNodes     uint32
	NumOrigEdges uint32
	NumFwdEdges  uint32
	NumBwdEdges  uint32
	Epsilon      float64
}

// WriteBinary serializes a hierarchy (including its input graph) to a file.
// The write goes through a temp file and an atomic rename; uses unsafe.Slice
// for zero-copy array I/O and a CRC32 trailer for integrity.
func WriteBinary(path string, h *Hierarchy) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath) // clean up on error
	}()

	crcWriter := crc32Writer{w: f, hash: crc32.NewIEEE()}
	w := &crcWriter

	g := h.Graph

	hdr := fileHeader{
		Version:      version,
		NumNodes:     h.NumNodes,
		NumOrigEdges: g.NumEdges,
		NumFwdEdges:  uint32(len(h.FwdHead)),
		NumBwdEdges:  uint32(len(h.BwdHead)),
		Epsilon:      h.Epsilon,
	}
	if g.Directed {
		hdr.Flags |= flagDirected
	}
	copy(hdr.Magic[:], magicBytes)
	if err := binary.Write(w, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Input graph.
	if err := writeUint32Slice(w, g.FirstOut); err != nil {
		return fmt.Errorf("write FirstOut: %w", err)
	}
	if err := writeUint32Slice(w, g.Head); err != nil {
		return fmt.Errorf("write Head: %w", err)
	}
	if err := writeFloat64Slice(w, g.Weight); err != nil {
		return fmt.Errorf("write Weight: %w", err)
	}

	// Optional node metadata (length-prefixed, 0 = absent).
	if err := writeLenPrefixedInt64(w, g.OrigID); err != nil {
		return fmt.Errorf("write OrigID: %w", err)
	}
	if err := writeLenPrefixedFloat64(w, g.NodeLat); err != nil {
		return fmt.Errorf("write NodeLat: %w", err)
	}
	if err := writeLenPrefixedFloat64(w, g.NodeLon); err != nil {
		return fmt.Errorf("write NodeLon: %w", err)
	}
	if err := writeLenPrefixedUint32(w, g.GeoFirstOut); err != nil {
		return fmt.Errorf("write GeoFirstOut: %w", err)
	}
	if err := writeLenPrefixedFloat64(w, g.GeoShapeLat); err != nil {
		return fmt.Errorf("write GeoShapeLat: %w", err)
	}
	if err := writeLenPrefixedFloat64(w, g.GeoShapeLon); err != nil {
		return fmt.Errorf("write GeoShapeLon: %w", err)
	}

	// Hierarchy.
	if err := writeUint32Slice(w, h.Rank); err != nil {
		return fmt.Errorf("write Rank: %w", err)
	}
	if err := writeUint32Slice(w, h.FwdFirstOut); err != nil {
		return fmt.Errorf("write FwdFirstOut: %w", err)
	}
	if err := writeUint32Slice(w, h.FwdHead); err != nil {
		return fmt.Errorf("write FwdHead: %w", err)
	}
	if err := writeFloat64Slice(w, h.FwdWeight); err != nil {
		return fmt.Errorf("write FwdWeight: %w", err)
	}
	if err := writeInt32Slice(w, h.FwdSkip); err != nil {
		return fmt.Errorf("write FwdSkip: %w", err)
	}
	if err := writeUint32Slice(w, h.BwdFirstOut); err != nil {
		return fmt.Errorf("write BwdFirstOut: %w", err)
	}
	if err := writeUint32Slice(w, h.BwdHead); err != nil {
		return fmt.Errorf("write BwdHead: %w", err)
	}
	if err := writeFloat64Slice(w, h.BwdWeight); err != nil {
		return fmt.Errorf("write BwdWeight: %w", err)
	}
	if err := writeInt32Slice(w, h.BwdSkip); err != nil {
		return fmt.Errorf("write BwdSkip: %w", err)
	}

	// CRC32 trailer.
	checksum := crcWriter.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("write CRC32: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Atomic rename.
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}

	return nil
}

// ReadBinary deserializes a hierarchy written by WriteBinary.
func ReadBinary(path string) (*Hierarchy, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	crcReader := crc32Reader{r: f, hash: crc32.NewIEEE()}
	r := &crcReader

	var hdr fileHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumOrigEdges > maxEdges || hdr.NumFwdEdges > maxEdges || hdr.NumBwdEdges > maxEdges {
		return nil, fmt.Errorf("edge count exceeds limit %d", maxEdges)
	}

	g := &graph.Graph{
		NumNodes: hdr.NumNodes,
		NumEdges: hdr.NumOrigEdges,
		Directed: hdr.Flags&flagDirected != 0,
	}
	h := &Hierarchy{NumNodes: hdr.NumNodes, Epsilon: hdr.Epsilon, Graph: g}

	if g.FirstOut, err = readUint32Slice(r, int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("read FirstOut: %w", err)
	}
	if g.Head, err = readUint32Slice(r, int(hdr.NumOrigEdges)); err != nil {
		return nil, fmt.Errorf("read Head: %w", err)
	}
	if g.Weight, err = readFloat64Slice(r, int(hdr.NumOrigEdges)); err != nil {
		return nil, fmt.Errorf("read Weight: %w", err)
	}

	if g.OrigID, err = readLenPrefixedInt64(r); err != nil {
		return nil, fmt.Errorf("read OrigID: %w", err)
	}
	if g.NodeLat, err = readLenPrefixedFloat64(r); err != nil {
		return nil, fmt.Errorf("read NodeLat: %w", err)
	}
	if g.NodeLon, err = readLenPrefixedFloat64(r); err != nil {
		return nil, fmt.Errorf("read NodeLon: %w", err)
	}
	if g.GeoFirstOut, err = readLenPrefixedUint32(r); err != nil {
		return nil, fmt.Errorf("read GeoFirstOut: %w", err)
	}
	if g.GeoShapeLat, err = readLenPrefixedFloat64(r); err != nil {
		return nil, fmt.Errorf("read GeoShapeLat: %w", err)
	}
	if g.GeoShapeLon, err = readLenPrefixedFloat64(r); err != nil {
		return nil, fmt.Errorf("read GeoShapeLon: %w", err)
	}
	g.ReindexIDs()

	if h.Rank, err = readUint32Slice(r, int(hdr.NumNodes)); err != nil {
		return nil, fmt.Errorf("read Rank: %w", err)
	}
	if h.FwdFirstOut, err = readUint32Slice(r, int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("read FwdFirstOut: %w", err)
	}
	if h.FwdHead, err = readUint32Slice(r, int(hdr.NumFwdEdges)); err != nil {
		return nil, fmt.Errorf("read FwdHead: %w", err)
	}
	if h.FwdWeight, err = readFloat64Slice(r, int(hdr.NumFwdEdges)); err != nil {
		return nil, fmt.Errorf("read FwdWeight: %w", err)
	}
	if h.FwdSkip, err = readInt32Slice(r, int(hdr.NumFwdEdges)); err != nil {
		return nil, fmt.Errorf("read FwdSkip: %w", err)
	}
	if h.BwdFirstOut, err = readUint32Slice(r, int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("read BwdFirstOut: %w", err)
	}
	if h.BwdHead, err = readUint32Slice(r, int(hdr.NumBwdEdges)); err != nil {
		return nil, fmt.Errorf("read BwdHead: %w", err)
	}
	if h.BwdWeight, err = readFloat64Slice(r, int(hdr.NumBwdEdges)); err != nil {
		return nil, fmt.Errorf("read BwdWeight: %w", err)
	}
	if h.BwdSkip, err = readInt32Slice(r, int(hdr.NumBwdEdges)); err != nil {
		return nil, fmt.Errorf("read BwdSkip: %w", err)
	}

	expectedCRC := crcReader.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("read CRC32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("CRC32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(g.FirstOut, g.Head, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("input CSR invalid: %w", err)
	}
	if err := validateCSR(h.FwdFirstOut, h.FwdHead, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("forward CSR invalid: %w", err)
	}
	if err := validateCSR(h.BwdFirstOut, h.BwdHead, hdr.NumNodes); err != nil {
		return nil, fmt.Errorf("backward CSR invalid: %w", err)
	}

	return h, nil
}

// validateCSR checks CSR invariants.
func validateCSR(firstOut, head []uint32, numNodes uint32) error {
	if uint32(len(firstOut)) != numNodes+1 {
		return fmt.Errorf("FirstOut length %d != NumNodes+1 %d", len(firstOut), numNodes+1)
	}
	numEdges := firstOut[numNodes]
	if uint32(len(head)) != numEdges {
		return fmt.Errorf("Head length %d != FirstOut[NumNodes] %d", len(head), numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if firstOut[i] < firstOut[i-1] {
			return fmt.Errorf("FirstOut not monotonic at %d: %d < %d", i, firstOut[i], firstOut[i-1])
		}
	}
	for i, h := range head {
		if h >= numNodes {
			return fmt.Errorf("Head[%d]=%d >= NumNodes=%d", i, h, numNodes)
		}
	}
	return nil
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt32Slice(w io.Writer, s []int32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt64Slice(w io.Writer, s []int64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt32Slice(r io.Reader, n int) ([]int32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt64Slice(r io.Reader, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// Length-prefixed variants for optional arrays (0 = absent).

func writeLenPrefixedUint32(w io.Writer, s []uint32) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return writeUint32Slice(w, s)
}

func writeLenPrefixedInt64(w io.Writer, s []int64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return writeInt64Slice(w, s)
}

func writeLenPrefixedFloat64(w io.Writer, s []float64) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	return writeFloat64Slice(w, s)
}

func readLenPrefixedUint32(r io.Reader) ([]uint32, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxEdges+1 {
		return nil, fmt.Errorf("array length %d exceeds limit", n)
	}
	return readUint32Slice(r, int(n))
}

func readLenPrefixedInt64(r io.Reader) ([]int64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxNodes {
		return nil, fmt.Errorf("array length %d exceeds limit", n)
	}
	return readInt64Slice(r, int(n))
}

func readLenPrefixedFloat64(r io.Reader) ([]float64, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return nil, err
	}
	if n > maxEdges+1 {
		return nil, fmt.Errorf("array length %d exceeds limit", n)
	}
	return readFloat64Slice(r, int(n))
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
