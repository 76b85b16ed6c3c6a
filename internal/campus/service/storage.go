package service

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// saveUploadedFile 保存上传文件到 dir 子目录，返回存储文件名
// 存储文件名带随机前缀，避免同名覆盖
func saveUploadedFile(baseDir, subDir string, fileHeader *multipart.FileHeader) (string, error) {
	dir := filepath.Join(baseDir, subDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建上传目录失败: %w", err)
	}

	fileID := uuid.New().String()[:32]
	savedName := fmt.Sprintf("%s_%s", fileID, filepath.Base(fileHeader.Filename))
	savePath := filepath.Join(dir, savedName)

	src, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("读取上传文件失败: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(savePath)
	if err != nil {
		return "", fmt.Errorf("保存文件失败: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	return savedName, nil
}

// removeStoredFile 删除存储文件，文件缺失不算错误
func removeStoredFile(baseDir, subDir, savedName string) error {
	if savedName == "" {
		return nil
	}
	err := os.Remove(filepath.Join(baseDir, subDir, savedName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
