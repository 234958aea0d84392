// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package amf0

import (
	"bytes"
	"io"

	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/naza/pkg/bele"
)

// WriteValue 编码一个amf0值，是Decoder的结构镜像
//
// 字符串按长度自动选择String或LongString的marker；key只有u16一种长度前缀，
// 超长的key是硬错误而不是静默截断
func WriteValue(w io.Writer, v Value) error {
	switch value := v.(type) {
	case nil:
		return writeMarker(w, markerNull)
	case float64:
		return WriteNumber(w, value)
	case int:
		return WriteNumber(w, float64(value))
	case int64:
		return WriteNumber(w, float64(value))
	case uint32:
		return WriteNumber(w, float64(value))
	case bool:
		return WriteBoolean(w, value)
	case string:
		return WriteString(w, value)
	case Object:
		return writeObject(w, value)
	case EcmaArray:
		return writeEcmaArray(w, value)
	case StrictArray:
		return writeStrictArray(w, value)
	case Date:
		return writeDate(w, value)
	case XmlDocument:
		return writeXmlDocument(w, value)
	case Undefined:
		return writeMarker(w, markerUndefined)
	}
	return base.ErrAmfInvalidValue
}

// WriteScriptData 编码script tag的payload，即(name, value)值对
func WriteScriptData(w io.Writer, name string, v Value) error {
	if err := WriteString(w, name); err != nil {
		return err
	}
	return WriteValue(w, v)
}

// PackScriptData 序列化script tag的payload到新申请的内存块
func PackScriptData(name string, v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteScriptData(&buf, name, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteNumber(w io.Writer, val float64) error {
	if err := writeMarker(w, markerNumber); err != nil {
		return err
	}
	return bele.WriteBe(w, val)
}

func WriteBoolean(w io.Writer, val bool) error {
	if err := writeMarker(w, markerBoolean); err != nil {
		return err
	}
	var b uint8
	if val {
		b = 1
	}
	_, err := w.Write([]byte{b})
	return err
}

func WriteString(w io.Writer, val string) error {
	if len(val) <= 0xFFFF {
		if err := writeMarker(w, markerString); err != nil {
			return err
		}
		return writeStr16(w, val)
	}
	if err := writeMarker(w, markerLongString); err != nil {
		return err
	}
	return writeStr32(w, val)
}

func WriteNull(w io.Writer) error {
	return writeMarker(w, markerNull)
}

func writeObject(w io.Writer, o Object) error {
	if o.ClassName != "" {
		if err := writeMarker(w, markerTypedObject); err != nil {
			return err
		}
		if err := writeStr16(w, o.ClassName); err != nil {
			return err
		}
	} else {
		if err := writeMarker(w, markerObject); err != nil {
			return err
		}
	}
	return writePairs(w, o.Pairs)
}

func writeEcmaArray(w io.Writer, a EcmaArray) error {
	if err := writeMarker(w, markerEcmaArray); err != nil {
		return err
	}
	if err := bele.WriteBe(w, uint32(len(a.Pairs))); err != nil {
		return err
	}
	return writePairs(w, a.Pairs)
}

func writeStrictArray(w io.Writer, a StrictArray) error {
	if err := writeMarker(w, markerStrictArray); err != nil {
		return err
	}
	if err := bele.WriteBe(w, uint32(len(a))); err != nil {
		return err
	}
	for _, e := range a {
		if err := WriteValue(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeDate(w io.Writer, d Date) error {
	if err := writeMarker(w, markerDate); err != nil {
		return err
	}
	if err := bele.WriteBe(w, d.UnixMillis); err != nil {
		return err
	}
	return bele.WriteBe(w, d.TimezoneOffset)
}

func writeXmlDocument(w io.Writer, x XmlDocument) error {
	if err := writeMarker(w, markerXmlDocument); err != nil {
		return err
	}
	return writeStr32(w, string(x))
}

func writePairs(w io.Writer, pairs []ObjectPair) error {
	for i := range pairs {
		if err := writeStr16(w, pairs[i].Key); err != nil {
			return err
		}
		if err := WriteValue(w, pairs[i].Value); err != nil {
			return err
		}
	}
	_, err := w.Write(objectEndBytes)
	return err
}

func writeStr16(w io.Writer, s string) error {
	if len(s) > 0xFFFF {
		return base.ErrAmfStringTooLong
	}
	if err := bele.WriteBe(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func writeStr32(w io.Writer, s string) error {
	if uint64(len(s)) > 0xFFFFFFFF {
		return base.ErrAmfStringTooLong
	}
	if err := bele.WriteBe(w, uint32(len(s))); err != nil {
		return err
	}
	_, err := w.Write([]byte(s))
	return err
}

func writeMarker(w io.Writer, m uint8) error {
	_, err := w.Write([]byte{m})
	return err
}
