package communication

import (
	et "github.com/AnishMulay/sandfile/internal/entry_table"
	fs "github.com/AnishMulay/sandfile/internal/file_service"
)

const (
	MessageTypeCreate = "create"
	MessageTypeOpen   = "open"
	MessageTypeWrite  = "write"
	MessageTypeRead   = "read"
	MessageTypeClose  = "close"
	MessageTypeDelete = "delete"
	MessageTypeList   = "list"
	MessageTypeStat   = "stat"
)

type CreateRequest struct {
	Name string `json:"name"`
}

type OpenRequest struct {
	Name string `json:"name"`
}

type OpenResponse struct {
	Handle fs.Handle `json:"handle"`
}

type WriteRequest struct {
	Handle fs.Handle `json:"handle"`
	Data   []byte    `json:"data"`
}

type ReadRequest struct {
	Handle         fs.Handle `json:"handle"`
	BufferCapacity int       `json:"bufferCapacity"`
}

type ReadResponse struct {
	Data []byte `json:"data"`
	N    int    `json:"n"`
}

type CloseRequest struct {
	Handle fs.Handle `json:"handle"`
}

type DeleteRequest struct {
	Name string `json:"name"`
}

type ListRequest struct {
	Pattern string `json:"pattern,omitempty"`
}

type ListResponse struct {
	Entries []et.FileEntry `json:"entries"`
}

type StatRequest struct {
	Name string `json:"name"`
}

type StatResponse struct {
	Entry et.FileEntry `json:"entry"`
}
