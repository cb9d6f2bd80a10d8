package assetstore

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DecodeDataURI parses a data:[<mediatype>][;base64],<data> URI.
func DecodeDataURI(uri string) (Payload, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return Payload{}, fmt.Errorf("assetstore: not a data URI")
	}
	meta, encoded, ok := strings.Cut(rest, ",")
	if !ok {
		return Payload{}, fmt.Errorf("assetstore: invalid data URI: missing comma separator")
	}
	if !strings.Contains(meta, ";base64") {
		return Payload{}, fmt.Errorf("assetstore: only base64 data URIs are supported")
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
		if err != nil {
			return Payload{}, fmt.Errorf("assetstore: invalid base64 data: %w", err)
		}
	}

	mime := strings.Split(strings.TrimSuffix(meta, ";base64"), ";")[0]
	if mime == "" {
		mime = DetectMIME(data, "")
	}
	return Payload{MIME: mime, Data: data}, nil
}

// EncodeDataURI renders p as a base64 data URI.
func EncodeDataURI(p Payload) string {
	mime := p.MIME
	if mime == "" {
		mime = DetectMIME(p.Data, p.Name)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}
