package disk

import (
	"encoding/json"
	"os"

	"github.com/iDC-NEU/tinydb/common"
)

// meta is the allocator state of the disk manager. It lives in a sidecar file
// next to the database file so that the data file stays a raw page array
// indexed from zero.
type meta struct {
	NextPageID uint32   `json:"next_page_id"`
	FreePages  []uint32 `json:"free_pages"`
}

type metaSerializer interface {
	read(path string) (*meta, error)
	write(path string, m *meta) error
}

type jsonMetaSerializer struct{}

func (jsonMetaSerializer) read(path string) (*meta, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, common.WrapError(common.IO, "cannot read meta file", err)
	}

	var m meta
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, common.WrapError(common.Conversion, "cannot parse meta file", err)
	}
	return &m, nil
}

func (jsonMetaSerializer) write(path string, m *meta) error {
	data, err := json.Marshal(m)
	if err != nil {
		return common.WrapError(common.Conversion, "cannot encode meta", err)
	}
	if err := os.WriteFile(path, data, os.ModePerm); err != nil {
		return common.WrapError(common.IO, "cannot write meta file", err)
	}
	return nil
}
