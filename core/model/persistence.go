package model

import (
	"encoding/json"
	"io"
	"os"

	mlerrors "github.com/plantops/forgeml/pkg/errors"
)

// SaveJSON はvをJSONとしてファイルに保存する
//
// 使用例:
//
//	err := model.SaveJSON(artifact, "model.json")
func SaveJSON(v interface{}, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return mlerrors.Wrapf(err, "failed to create %s", filename)
	}
	defer file.Close()

	if err := WriteJSON(v, file); err != nil {
		return err
	}
	return mlerrors.WithStack(file.Close())
}

// LoadJSON はファイルからJSONを読み込みvに復元する
func LoadJSON(filename string, v interface{}) error {
	file, err := os.Open(filename)
	if err != nil {
		return mlerrors.Wrapf(err, "failed to open %s", filename)
	}
	defer file.Close()

	return ReadJSON(file, v)
}

// WriteJSON はvをio.Writerにインデント付きJSONで書き出す
func WriteJSON(v interface{}, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return mlerrors.Wrap(err, "failed to encode model")
	}
	return nil
}

// ReadJSON はio.ReaderからJSONを読み込む
// デコードに失敗した場合は ErrInvalidArtifact でマークされる。
func ReadJSON(r io.Reader, v interface{}) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return mlerrors.Mark(mlerrors.Wrap(err, "failed to decode model"), mlerrors.ErrInvalidArtifact)
	}
	return nil
}
