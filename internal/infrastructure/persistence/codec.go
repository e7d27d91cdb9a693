package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"netif-recorder/internal/domain/entities"

	"gopkg.in/yaml.v3"
)

// Codec은 기록 집합 문서의 직렬화 형식입니다
type Codec interface {
	Name() string
	Marshal(records entities.RecordSet) ([]byte, error)
	Unmarshal(data []byte) (entities.RecordSet, error)
}

// JSONCodec은 2칸 들여쓰기 JSON 배열로 기록 집합을 저장합니다
type JSONCodec struct{}

func (JSONCodec) Name() string { return "json" }

func (JSONCodec) Marshal(records entities.RecordSet) ([]byte, error) {
	if records == nil {
		records = entities.RecordSet{}
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func (JSONCodec) Unmarshal(data []byte) (entities.RecordSet, error) {
	var records entities.RecordSet
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// YAMLCodec은 YAML 시퀀스로 기록 집합을 저장합니다
type YAMLCodec struct{}

func (YAMLCodec) Name() string { return "yaml" }

func (YAMLCodec) Marshal(records entities.RecordSet) ([]byte, error) {
	if records == nil {
		records = entities.RecordSet{}
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (YAMLCodec) Unmarshal(data []byte) (entities.RecordSet, error) {
	var records entities.RecordSet
	if err := yaml.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CodecForPath는 파일 확장자로 코덱을 고릅니다. 확장자가 없으면 JSON입니다
func CodecForPath(path string) (Codec, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", "":
		return JSONCodec{}, nil
	case ".yaml", ".yml":
		return YAMLCodec{}, nil
	default:
		return nil, fmt.Errorf("unsupported record file extension: %s", filepath.Ext(path))
	}
}
