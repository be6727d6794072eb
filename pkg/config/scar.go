package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
)

const (
	DefaultCorpusDir = "/data/bill_image_data"
	DefaultPattern   = "*jpg"
	DefaultNumFiles  = 100
)

type ScarSchema struct {
	Corpus  *CorpusSchema  `hcl:"corpus,block"`
	Fill    *FillSchema    `hcl:"fill,block"`
	Maxout  *MaxoutSchema  `hcl:"maxout,block"`
	Erase   *EraseSchema   `hcl:"erase,block"`
	Flush   *FlushSchema   `hcl:"flush,block"`
	Archive *ArchiveSchema `hcl:"archive,block"`
}

type CorpusSchema struct {
	Dir     string `hcl:"dir,optional"`
	Pattern string `hcl:"pattern,optional"`
}

type FillSchema struct {
	Bucket int `hcl:"bucket,optional"`
}

type MaxoutSchema struct {
	Bucket int    `hcl:"bucket,optional"`
	Chunk  string `hcl:"chunk,optional"`
	Large  string `hcl:"large,optional"`
	Small  string `hcl:"small,optional"`
}

type EraseSchema struct {
	Pattern  string `hcl:"pattern,optional"`
	Percent  int    `hcl:"percent,optional"`
	NumFiles int    `hcl:"numfiles,optional"`
}

type FlushSchema struct {
	Command string `hcl:"command,optional"`
}

type ArchiveSchema struct {
	Secure    bool   `hcl:"secure,optional"`
	AccessKey string `hcl:"accesskey,attr"`
	SecretKey string `hcl:"secretkey,attr"`
	Endpoint  string `hcl:"endpoint,attr"`
	Bucket    string `hcl:"bucket,attr"`
}

var ErrByteValue = errors.New("invalid byte value")

// ParseByteValue reads sizes like "64k", "4m" or "4g".
func ParseByteValue(val string) (int64, error) {
	multiplier := int64(1)
	s := strings.Trim(strings.ToLower(val), " \t\r\n")
	if s == "" {
		return 0, nil
	}

	suffix := s[len(s)-1:]
	switch suffix {
	case "b":
		multiplier = 1
		s = s[:len(s)-1]
	case "k":
		multiplier = 1024
		s = s[:len(s)-1]
	case "m":
		multiplier = 1024 * 1024
		s = s[:len(s)-1]
	case "g":
		multiplier = 1024 * 1024 * 1024
		s = s[:len(s)-1]
	}

	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("%w %q", ErrByteValue, val)
	}
	return i * multiplier, nil
}

func (ms *MaxoutSchema) ByteChunk() (int64, error) {
	return ParseByteValue(ms.Chunk)
}

func (ms *MaxoutSchema) ByteLarge() (int64, error) {
	return ParseByteValue(ms.Large)
}

func (ms *MaxoutSchema) ByteSmall() (int64, error) {
	return ParseByteValue(ms.Small)
}

// Default returns the settings used when no config file is present.
func Default() *ScarSchema {
	s := new(ScarSchema)
	s.ApplyDefaults()
	return s
}

// ApplyDefaults fills in every missing block and zero valued field.
// A zero erase.numfiles is treated as unset.
func (s *ScarSchema) ApplyDefaults() {
	if s.Corpus == nil {
		s.Corpus = &CorpusSchema{}
	}
	if s.Corpus.Dir == "" {
		s.Corpus.Dir = DefaultCorpusDir
	}
	if s.Corpus.Pattern == "" {
		s.Corpus.Pattern = DefaultPattern
	}

	if s.Fill == nil {
		s.Fill = &FillSchema{}
	}
	if s.Fill.Bucket == 0 {
		s.Fill.Bucket = 1000
	}

	if s.Maxout == nil {
		s.Maxout = &MaxoutSchema{}
	}
	if s.Maxout.Bucket == 0 {
		s.Maxout.Bucket = 100
	}
	if s.Maxout.Chunk == "" {
		s.Maxout.Chunk = "64k"
	}
	if s.Maxout.Large == "" {
		s.Maxout.Large = "4g"
	}
	if s.Maxout.Small == "" {
		s.Maxout.Small = "4m"
	}

	if s.Erase == nil {
		s.Erase = &EraseSchema{}
	}
	if s.Erase.Pattern == "" {
		s.Erase.Pattern = DefaultPattern
	}
	if s.Erase.NumFiles == 0 {
		s.Erase.NumFiles = DefaultNumFiles
	}

	if s.Flush == nil {
		s.Flush = &FlushSchema{}
	}
}

// Validate checks values that HCL itself cannot.
func (s *ScarSchema) Validate() error {
	if s.Fill.Bucket < 1 || s.Maxout.Bucket < 1 {
		return errors.New("bucket capacity must be positive")
	}
	chunk, err := s.Maxout.ByteChunk()
	if err != nil {
		return err
	}
	if chunk < 1 {
		return errors.New("maxout chunk must be positive")
	}
	large, err := s.Maxout.ByteLarge()
	if err != nil {
		return err
	}
	small, err := s.Maxout.ByteSmall()
	if err != nil {
		return err
	}
	if large < 1 || small < 1 {
		return errors.New("maxout sizes must be positive")
	}
	if s.Erase.Percent < 0 || s.Erase.Percent > 100 {
		return fmt.Errorf("erase percent %d out of range", s.Erase.Percent)
	}
	if s.Erase.NumFiles < 0 {
		return fmt.Errorf("erase numfiles %d out of range", s.Erase.NumFiles)
	}
	if s.Archive != nil && s.Archive.Bucket == "" {
		return errors.New("archive bucket must be set")
	}
	return nil
}

// ReadSchema loads path, falling back to Default when the file does not exist.
func ReadSchema(path string) (*ScarSchema, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}

	s := new(ScarSchema)
	err = s.Decode(data)
	if err != nil {
		return nil, err
	}
	s.ApplyDefaults()
	return s, s.Validate()
}

func (s *ScarSchema) Decode(data []byte) error {
	file, diag := hclsyntax.ParseConfig(data, "", hcl.Pos{Line: 1, Column: 1})
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	diag = gohcl.DecodeBody(file.Body, nil, s)
	if diag.HasErrors() {
		return diag.Errs()[0]
	}

	return nil
}

func (s *ScarSchema) Encode() ([]byte, error) {
	f := hclwrite.NewEmptyFile()
	gohcl.EncodeIntoBody(s, f.Body())
	return f.Bytes(), nil
}
