package alipay

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"fmt"
	"strings"
)

// DecryptPayload 解密开放平台加密数据（AES-128-CBC，零向量 IV，PKCS#7 填充）。
// encryptKey 与 payload 均为 base64。
func DecryptPayload(encryptKey, payload string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encryptKey))
	if err != nil {
		return nil, fmt.Errorf("%w: decode encrypt key failed", ErrDecryptFailed)
	}
	cipherText, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: decode payload failed", ErrDecryptFailed)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid encrypt key", ErrDecryptFailed)
	}
	if len(cipherText) == 0 || len(cipherText)%block.BlockSize() != 0 {
		return nil, fmt.Errorf("%w: payload length invalid", ErrDecryptFailed)
	}
	iv := make([]byte, block.BlockSize())
	plain := make([]byte, len(cipherText))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, cipherText)
	plain, err = stripPKCS7(plain, block.BlockSize())
	if err != nil {
		return nil, err
	}
	return plain, nil
}

// EncryptPayload 加密为开放平台同构密文，供联调与测试使用。
func EncryptPayload(encryptKey string, plain []byte) (string, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encryptKey))
	if err != nil {
		return "", fmt.Errorf("%w: decode encrypt key failed", ErrDecryptFailed)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encrypt key", ErrDecryptFailed)
	}
	blockSize := block.BlockSize()
	padLen := blockSize - len(plain)%blockSize
	padded := make([]byte, 0, len(plain)+padLen)
	padded = append(padded, plain...)
	for i := 0; i < padLen; i++ {
		padded = append(padded, byte(padLen))
	}
	iv := make([]byte, blockSize)
	cipherText := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(cipherText, padded)
	return base64.StdEncoding.EncodeToString(cipherText), nil
}

func stripPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty plain text", ErrDecryptFailed)
	}
	padLen := int(data[len(data)-1])
	if padLen <= 0 || padLen > blockSize || padLen > len(data) {
		return nil, fmt.Errorf("%w: padding invalid", ErrDecryptFailed)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("%w: padding invalid", ErrDecryptFailed)
		}
	}
	return data[:len(data)-padLen], nil
}
