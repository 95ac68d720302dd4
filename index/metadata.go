package index

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/iDC-NEU/tinydb/catalog"
)

type IndexType int

const (
	BPlusTreeType IndexType = iota
)

// Metadata describes an index: which table it belongs to, which columns of
// the table schema make up the key, and the key schema projected out of them.
type Metadata struct {
	oid       uuid.UUID
	indexName string
	tableName string
	keySchema *catalog.Schema
	keyAttrs  []int
	indexType IndexType
	unique    bool
}

func NewMetadata(indexName, tableName string, tupleSchema *catalog.Schema, keyAttrs []int, indexType IndexType, unique bool) *Metadata {
	return &Metadata{
		oid:       uuid.New(),
		indexName: indexName,
		tableName: tableName,
		keySchema: catalog.CopySchema(tupleSchema, keyAttrs),
		keyAttrs:  keyAttrs,
		indexType: indexType,
		unique:    unique,
	}
}

func (m *Metadata) GetOID() uuid.UUID {
	return m.oid
}

func (m *Metadata) GetIndexName() string {
	return m.indexName
}

func (m *Metadata) GetTableName() string {
	return m.tableName
}

func (m *Metadata) GetKeySchema() *catalog.Schema {
	return m.keySchema
}

// GetIndexColumnCount returns the number of columns inside the index key.
func (m *Metadata) GetIndexColumnCount() int {
	return m.keySchema.GetColumnCount()
}

func (m *Metadata) GetKeyAttrs() []int {
	return m.keyAttrs
}

func (m *Metadata) GetIndexType() IndexType {
	return m.indexType
}

func (m *Metadata) IsUnique() bool {
	return m.unique
}

func (m *Metadata) String() string {
	return fmt.Sprintf("IndexMetadata[Name = %s, TableName = %s, OID = %s]", m.indexName, m.tableName, m.oid)
}
