package store

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"go.etcd.io/bbolt"
)

var (
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
)

// BoltCache persists embeddings in a bbolt file keyed by (model, text).
type BoltCache struct {
	db *bbolt.DB
}

// CacheInfo summarises the cache file.
type CacheInfo struct {
	Entries       int    `json:"entries"`
	SizeBytes     int64  `json:"size_bytes"`
	SchemaVersion int    `json:"schema_version"`
	ConfigHash    string `json:"config_hash"`
}

func NewBoltCache(path string) (*BoltCache, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltCache{db: db}, nil
}

func (s *BoltCache) DB() *bbolt.DB {
	return s.db
}

// CacheKey identifies a vector by model and exact input text.
func CacheKey(model, text string) []byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

func (s *BoltCache) Get(model, text string) ([]float32, bool, error) {
	var vec []float32
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get(CacheKey(model, text))
		if data == nil {
			return nil
		}
		var err error
		vec, err = DecodeVector(data)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return vec, vec != nil, nil
}

// Put stores vector unless the key is already cached; the first vector wins.
func (s *BoltCache) Put(model, text string, vector []float32) error {
	return s.PutBatch(model, []string{text}, [][]float32{vector})
}

// PutBatch stores several vectors in one transaction.
func (s *BoltCache) PutBatch(model string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("put batch: %d texts but %d vectors", len(texts), len(vectors))
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for i, text := range texts {
			key := CacheKey(model, text)
			if b.Get(key) != nil {
				continue
			}
			if err := b.Put(key, EncodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltCache) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n, err
}

// Info reports entry count, file size and schema metadata.
func (s *BoltCache) Info() (CacheInfo, error) {
	var info CacheInfo
	schema, err := s.GetSchemaInfo()
	if err != nil {
		return info, err
	}
	info.SchemaVersion = schema.Version
	info.ConfigHash = schema.ConfigHash

	err = s.db.View(func(tx *bbolt.Tx) error {
		info.Entries = tx.Bucket(bucketVectors).Stats().KeyN
		info.SizeBytes = tx.Size()
		return nil
	})
	return info, err
}

func (s *BoltCache) Close() error {
	return s.db.Close()
}

// EncodeVector serialises a vector as little-endian float32 values.
func EncodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(x))
	}
	return buf
}

// DecodeVector is the inverse of EncodeVector.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("corrupt vector: %d bytes is not a multiple of 4", len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return v, nil
}
