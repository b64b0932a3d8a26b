package util

import (
	"crypto/md5"
	"encoding/hex"
	"io"
	"os"
)

// MD5 returns the hex md5 digest of everything read from reader.
func MD5(reader io.Reader) (string, error) {
	h := md5.New()
	if _, err := io.Copy(h, reader); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MD5File identifies the exact configuration a decoder run used.
func MD5File(filename string) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()
	return MD5(file)
}
