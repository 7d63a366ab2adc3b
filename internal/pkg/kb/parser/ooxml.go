package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
)

// readZipEntry 读取 OOXML 包内指定路径的条目。
func readZipEntry(r *zip.ReadCloser, name string) ([]byte, error) {
	for _, f := range r.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", name, err)
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("entry %s not found", name)
}

// decodeXML 解码 OOXML 包内的一个 XML 条目。
func decodeXML(r *zip.ReadCloser, name string, v interface{}) error {
	data, err := readZipEntry(r, name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
