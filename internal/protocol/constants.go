package protocol

// ChunkSize is the size of every binary chunk frame except the last one of a file.
const ChunkSize = 16 * 1024

// RecordType discriminates the control records carried as string frames.
type RecordType string

const (
	TypeFileEnd  RecordType = "file-end"
	TypeFileMeta RecordType = "file-meta"
	TypeText     RecordType = "text"
)

func (t RecordType) String() string {
	switch t {
	case TypeFileEnd:
		return "FILE_END"
	case TypeFileMeta:
		return "FILE_META"
	case TypeText:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}
