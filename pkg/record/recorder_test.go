// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package record_test

import (
	"encoding/hex"
	"errors"
	"io"
	"testing"

	"github.com/q191201771/liverec/pkg/amf0"
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/liverec/pkg/flv"
	. "github.com/q191201771/liverec/pkg/record"
	"github.com/q191201771/naza/pkg/assert"
)

var dcr720, _ = hex.DecodeString("0142001fffe100096742001ff402802dc801000468ce3c80")

func makeMetadata(t *testing.T) flv.Tag {
	payload, err := amf0.PackScriptData("onMetaData", amf0.EcmaArray{
		Pairs: []amf0.ObjectPair{
			{Key: "width", Value: float64(1280)},
			{Key: "height", Value: float64(720)},
		},
	})
	assert.Equal(t, nil, err)
	return flv.PackTag(flv.TagTypeMetadata, 0, payload)
}

func makeAacSeqHeader() flv.Tag {
	return flv.PackTag(flv.TagTypeAudio, 0, []byte{0xaf, 0x00, 0x12, 0x10})
}

func makeAvcSeqHeader(ts uint32, dcr []byte) flv.Tag {
	return flv.PackTag(flv.TagTypeVideo, ts, append([]byte{0x17, 0x00, 0, 0, 0}, dcr...))
}

func makeKeyFrame(ts uint32, mark byte) flv.Tag {
	return flv.PackTag(flv.TagTypeVideo, ts, []byte{0x17, 0x01, 0, 0, 0, mark})
}

func makeInterFrame(ts uint32, mark byte) flv.Tag {
	return flv.PackTag(flv.TagTypeVideo, ts, []byte{0x27, 0x01, 0, 0, 0, mark})
}

func readAllTags(t *testing.T, filename string) []flv.Tag {
	var fr flv.FlvFileReader
	err := fr.Open(filename)
	assert.Equal(t, nil, err)
	defer fr.Dispose()
	_, err = fr.ReadFlvHeader()
	assert.Equal(t, nil, err)
	var tags []flv.Tag
	for {
		tag, err := fr.ReadTag()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return tags
		}
		assert.Equal(t, nil, err)
		tags = append(tags, tag)
	}
}

func assertTagsEqual(t *testing.T, expected []flv.Tag, actual []flv.Tag) {
	assert.Equal(t, len(expected), len(actual))
	for i := range expected {
		assert.Equal(t, expected[i].Raw, actual[i].Raw)
	}
}

func TestRecorderSegmentBySize(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
		option.StreamName = "test"
		option.MaxFileSizeBytes = 1
	})

	meta := makeMetadata(t)
	aacHdr := makeAacSeqHeader()
	avcHdr := makeAvcSeqHeader(0, dcr720)
	k1 := makeKeyFrame(0, 1)
	d1 := makeInterFrame(40, 2)
	d2 := makeInterFrame(80, 3)
	k2 := makeKeyFrame(120, 4)
	d3 := makeInterFrame(160, 5)
	k3 := makeKeyFrame(200, 6)

	for _, tag := range []flv.Tag{meta, aacHdr, avcHdr, k1, d1, d2, k2, d3, k3} {
		assert.Equal(t, nil, r.WriteTag(tag))
	}
	assert.Equal(t, nil, r.Dispose())

	// 大小限制小于一个GOP时，每个关键帧都开一个新文件
	filenames := r.Filenames()
	assert.Equal(t, 3, len(filenames))

	// 每个文件的前三个tag是缓存的头部，和原始tag字节级一致
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr, k1, d1, d2}, readAllTags(t, filenames[0]))
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr, k2, d3}, readAllTags(t, filenames[1]))
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr, k3}, readAllTags(t, filenames[2]))
}

func TestRecorderUnbounded(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
	})

	meta := makeMetadata(t)
	aacHdr := makeAacSeqHeader()
	avcHdr := makeAvcSeqHeader(0, dcr720)
	k1 := makeKeyFrame(0, 1)
	d1 := makeInterFrame(40, 2)
	k2 := makeKeyFrame(80, 3)

	for _, tag := range []flv.Tag{meta, aacHdr, avcHdr, k1, d1, k2} {
		assert.Equal(t, nil, r.WriteTag(tag))
	}
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 1, len(filenames))
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr, k1, d1, k2}, readAllTags(t, filenames[0]))
}

func TestRecorderSegmentByDuration(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
		option.MaxDurationMs = 50
	})

	avcHdr := makeAvcSeqHeader(0, dcr720)
	k1 := makeKeyFrame(0, 1)
	k2 := makeKeyFrame(40, 2)
	k3 := makeKeyFrame(80, 3)
	k4 := makeKeyFrame(120, 4)

	for _, tag := range []flv.Tag{avcHdr, k1, k2, k3, k4} {
		assert.Equal(t, nil, r.WriteTag(tag))
	}
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 2, len(filenames))
	assertTagsEqual(t, []flv.Tag{avcHdr, k1, k2}, readAllTags(t, filenames[0]))
	assertTagsEqual(t, []flv.Tag{avcHdr, k3, k4}, readAllTags(t, filenames[1]))
}

// seq header内容变化时即使没到大小时长限制也强制切分
func TestRecorderHeaderChange(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
	})

	dcrChanged, _ := hex.DecodeString("01640028ffe1000b67640028ace501e0089f9501000468ce3c80")

	meta := makeMetadata(t)
	aacHdr := makeAacSeqHeader()
	avcHdr1 := makeAvcSeqHeader(0, dcr720)
	k1 := makeKeyFrame(0, 1)
	d1 := makeInterFrame(40, 2)
	avcHdr2 := makeAvcSeqHeader(80, dcrChanged)
	d2 := makeInterFrame(80, 3)
	k2 := makeKeyFrame(120, 4)
	d3 := makeInterFrame(160, 5)
	k3 := makeKeyFrame(200, 6)

	for _, tag := range []flv.Tag{meta, aacHdr, avcHdr1, k1, d1, avcHdr2, d2, k2, d3, k3} {
		assert.Equal(t, nil, r.WriteTag(tag))
	}
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 2, len(filenames))
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr1, k1, d1}, readAllTags(t, filenames[0]))
	// 新文件中变化后的header跟在metadata和aac header后面，不再重复写旧的
	assertTagsEqual(t, []flv.Tag{meta, aacHdr, avcHdr2, d2, k2, d3, k3}, readAllTags(t, filenames[1]))
}

// 时间戳回退只告警，tag照常写入
func TestRecorderTimestampRegression(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
	})

	avcHdr := makeAvcSeqHeader(0, dcr720)
	k1 := makeKeyFrame(100, 1)
	d1 := makeInterFrame(50, 2)
	k2 := makeKeyFrame(140, 3)

	for _, tag := range []flv.Tag{avcHdr, k1, d1, k2} {
		assert.Equal(t, nil, r.WriteTag(tag))
	}
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 1, len(filenames))
	assertTagsEqual(t, []flv.Tag{avcHdr, k1, d1, k2}, readAllTags(t, filenames[0]))
}

// 头部不全时继续录
func TestRecorderMissingHeaders(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
	})

	k1 := makeKeyFrame(0, 1)
	d1 := makeInterFrame(40, 2)

	assert.Equal(t, nil, r.WriteTag(k1))
	assert.Equal(t, nil, r.WriteTag(d1))
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 1, len(filenames))
	assertTagsEqual(t, []flv.Tag{k1, d1}, readAllTags(t, filenames[0]))
}

func TestRecorderDisposed(t *testing.T) {
	r := NewRecorder(func(option *Option) {
		option.OutPath = t.TempDir()
	})
	assert.Equal(t, nil, r.Dispose())
	assert.Equal(t, base.ErrRecordDisposed, r.WriteTag(makeKeyFrame(0, 1)))
	assert.Equal(t, base.ErrRecordDisposed, r.Dispose())
}

// 结构损坏的metadata不会被缓存，错误上抛给调用方结束会话
func TestRecorderBadMetadata(t *testing.T) {
	outPath := t.TempDir()
	r := NewRecorder(func(option *Option) {
		option.OutPath = outPath
	})

	// name "x"，value是一个引用自身槽位的strict array
	bad := flv.PackTag(flv.TagTypeMetadata, 0, []byte{
		0x02, 0x00, 0x01, 'x',
		0x0a, 0x00, 0x00, 0x00, 0x01,
		0x07, 0x00, 0x00,
	})
	err := r.WriteTag(bad)
	assert.IsNotNil(t, err)
	assert.Equal(t, true, errors.Is(err, base.ErrAmfCircularReference))

	// 坏tag被拒绝后，后续正常数据不受影响
	meta := makeMetadata(t)
	k1 := makeKeyFrame(0, 1)
	assert.Equal(t, nil, r.WriteTag(meta))
	assert.Equal(t, nil, r.WriteTag(k1))
	assert.Equal(t, nil, r.Dispose())

	filenames := r.Filenames()
	assert.Equal(t, 1, len(filenames))
	assertTagsEqual(t, []flv.Tag{meta, k1}, readAllTags(t, filenames[0]))
}
