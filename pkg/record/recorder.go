// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package record

import (
	"bytes"
	"fmt"
	"path/filepath"
	"time"

	"github.com/q191201771/liverec/pkg/aac"
	"github.com/q191201771/liverec/pkg/avc"
	"github.com/q191201771/liverec/pkg/base"
	"github.com/q191201771/liverec/pkg/flv"
	"github.com/q191201771/naza/pkg/nazalog"
	"github.com/q191201771/naza/pkg/unique"
)

// Recorder 将一条flv tag流录制为一个或多个独立可播放的分段文件
//
// 分段只发生在视频关键帧上。metadata，aac seq header和avc seq header三种头部tag
// 被缓存下来，在每个新的分段文件开头重新写入一遍，保证每个文件单独丢给播放器都能播
//
// 其他tag先进入pending缓存，直到下一个关键帧才批量落盘，使得文件的切分点
// 总是正好落在关键帧前
//
// 注意，非线程安全，一条流对应一个Recorder实例，在同一个goroutine中使用
type Recorder struct {
	UniqueKey string

	option Option

	metadata     *flv.Tag
	aacSeqHeader *flv.Tag
	avcSeqHeader *flv.Tag

	pending []flv.Tag

	// avc seq header发生变化时置上，下一个关键帧处强制切分新文件
	forceNewSegment bool
	// 本次切分由seq header变化引起，新的header已经在pending中排队，开新文件时不再重复写
	skipAvcHeaderOnce bool

	fw           *flv.FlvFileWriter
	segStartTs   uint32
	segStartTsOk bool
	segIndex     int
	filenames    []string

	lastFlushedTs uint32
	hasFlushed    bool

	disposed bool
}

func NewRecorder(modOptions ...ModOption) *Recorder {
	option := defaultOption
	for _, fn := range modOptions {
		fn(&option)
	}
	uk := unique.GenUniqueKey("RECORDER")
	r := &Recorder{
		UniqueKey: uk,
		option:    option,
	}
	nazalog.Infof("[%s] lifecycle new record.Recorder. option=%+v", uk, option)
	return r
}

// WriteTag 喂入一个解析好的tag，tag的生命期调用结束后归还给调用方
func (r *Recorder) WriteTag(tag flv.Tag) error {
	if r.disposed {
		return base.ErrRecordDisposed
	}

	switch {
	case tag.IsMetadata():
		return r.cacheMetadata(tag)
	case tag.IsAacSeqHeader():
		r.cacheAacSeqHeader(tag)
		return nil
	case tag.IsVideoKeySeqHeader():
		return r.cacheVideoSeqHeader(tag)
	}

	if tag.IsVideoKeyFrame() {
		if err := r.onVideoKeyFrame(tag); err != nil {
			return err
		}
	}
	r.pending = append(r.pending, tag.Clone())
	return nil
}

// Dispose 流结束时调用，将pending中的数据落盘并关闭当前文件
func (r *Recorder) Dispose() error {
	if r.disposed {
		return base.ErrRecordDisposed
	}
	r.disposed = true
	err := r.flushPending()
	if err2 := r.closeSegment(); err == nil {
		err = err2
	}
	nazalog.Infof("[%s] lifecycle dispose record.Recorder. filenames=%d", r.UniqueKey, len(r.filenames))
	return err
}

// Filenames 已经创建出的分段文件名，按创建顺序
func (r *Recorder) Filenames() []string {
	return r.filenames
}

// ---------------------------------------------------------------------------------------------------------------------

func (r *Recorder) cacheMetadata(tag flv.Tag) error {
	// 坏的metadata不能缓存，否则会被重复写进之后每个分段文件
	name, _, err := tag.ParseScriptData()
	if err != nil {
		nazalog.Errorf("[%s] parse metadata failed. err=%+v, timestamp=%d", r.UniqueKey, err, tag.Header.Timestamp)
		return err
	}
	if name != "onMetaData" {
		nazalog.Warnf("[%s] unexpected script data name. name=%s", r.UniqueKey, name)
	}
	if r.metadata != nil {
		nazalog.Warnf("[%s] metadata exist already, replace it. timestamp=%d", r.UniqueKey, tag.Header.Timestamp)
	}
	t := tag.Clone()
	r.metadata = &t
	nazalog.Infof("[%s] cache metadata. name=%s, size=%d", r.UniqueKey, name, len(tag.Payload()))
	return nil
}

func (r *Recorder) cacheAacSeqHeader(tag flv.Tag) {
	if r.aacSeqHeader != nil {
		nazalog.Warnf("[%s] aac seq header exist already, replace it. timestamp=%d", r.UniqueKey, tag.Header.Timestamp)
	}
	t := tag.Clone()
	r.aacSeqHeader = &t

	if len(tag.Payload()) > 2 {
		var ascCtx aac.AscContext
		if err := ascCtx.Unpack(tag.Payload()[2:]); err == nil {
			fre, _ := ascCtx.SamplingFrequency()
			nazalog.Infof("[%s] cache aac seq header. object=%d, frequency=%d, channel=%d",
				r.UniqueKey, ascCtx.AudioObjectType, fre, ascCtx.ChannelConfiguration)
		}
	}
}

func (r *Recorder) cacheVideoSeqHeader(tag flv.Tag) error {
	if r.avcSeqHeader != nil {
		if bytes.Equal(r.avcSeqHeader.Payload(), tag.Payload()) {
			// 内容相同的重复header直接吞掉
			return nil
		}

		nazalog.Warnf("[%s] video seq header changed, will force new segment. timestamp=%d", r.UniqueKey, tag.Header.Timestamp)
		// 旧配置的tag先落盘到旧文件，新的header排进pending，跟着之后的数据进新文件
		if err := r.flushPending(); err != nil {
			return err
		}
		r.forceNewSegment = true
		r.skipAvcHeaderOnce = true
		t := tag.Clone()
		r.avcSeqHeader = &t
		r.pending = append(r.pending, tag.Clone())
		return nil
	}

	t := tag.Clone()
	r.avcSeqHeader = &t

	if tag.IsAvcKeySeqHeader() && len(tag.Payload()) > 5 {
		if width, height, err := avc.ExtractResolution(tag.Payload()[5:]); err == nil {
			nazalog.Infof("[%s] cache video seq header. resolution=%dx%d", r.UniqueKey, width, height)
		}
	}
	return nil
}

// onVideoKeyFrame 关键帧是唯一合法的切分点
func (r *Recorder) onVideoKeyFrame(tag flv.Tag) error {
	if r.forceNewSegment {
		if err := r.closeSegment(); err != nil {
			return err
		}
		r.forceNewSegment = false
		return nil
	}

	if err := r.flushPending(); err != nil {
		return err
	}
	if r.fw != nil && r.segmentLimitReached(tag.Header.Timestamp) {
		return r.closeSegment()
	}
	return nil
}

func (r *Recorder) segmentLimitReached(nowTs uint32) bool {
	if r.option.MaxFileSizeBytes > 0 && r.fw.Size() >= r.option.MaxFileSizeBytes {
		return true
	}
	if r.option.MaxDurationMs > 0 && r.segStartTsOk && nowTs >= r.segStartTs &&
		nowTs-r.segStartTs >= r.option.MaxDurationMs {
		return true
	}
	return false
}

func (r *Recorder) flushPending() error {
	if len(r.pending) == 0 {
		return nil
	}
	for i := range r.pending {
		if err := r.writeTagToSegment(r.pending[i]); err != nil {
			return err
		}
	}
	r.pending = r.pending[:0]
	return nil
}

func (r *Recorder) writeTagToSegment(tag flv.Tag) error {
	if r.fw == nil {
		if err := r.openSegment(tag.Header.Timestamp); err != nil {
			return err
		}
	}

	if r.hasFlushed && tag.Header.Timestamp < r.lastFlushedTs {
		nazalog.Warnf("[%s] tag timestamp regression. timestamp=%d, last=%d",
			r.UniqueKey, tag.Header.Timestamp, r.lastFlushedTs)
	}
	r.lastFlushedTs = tag.Header.Timestamp
	r.hasFlushed = true

	return r.fw.WriteTag(tag)
}

// openSegment 创建新的分段文件，并在所有数据tag之前重新写入缓存的头部tag
func (r *Recorder) openSegment(startTs uint32) error {
	filename := fmt.Sprintf("%s-%d-%d.flv", r.option.StreamName, time.Now().UnixNano()/1e6, r.segIndex)
	filenameWithPath := filepath.Join(r.option.OutPath, filename)

	fw := &flv.FlvFileWriter{}
	if err := fw.Open(filenameWithPath); err != nil {
		nazalog.Errorf("[%s] record flv open file failed. filename=%s, err=%+v", r.UniqueKey, filenameWithPath, err)
		return err
	}
	if err := fw.WriteFlvHeader(); err != nil {
		nazalog.Errorf("[%s] record flv write flv header failed. filename=%s, err=%+v", r.UniqueKey, filenameWithPath, err)
		_ = fw.Dispose()
		return err
	}
	nazalog.Infof("[%s] open segment. filename=%s, startTs=%d", r.UniqueKey, filenameWithPath, startTs)

	r.fw = fw
	r.segStartTs = startTs
	r.segStartTsOk = true
	r.segIndex++
	r.filenames = append(r.filenames, filenameWithPath)

	// 头部不全时记一条日志继续录，播放器有机会自己恢复
	if r.metadata != nil {
		if err := r.fw.WriteTag(*r.metadata); err != nil {
			return err
		}
	} else {
		nazalog.Warnf("[%s] open segment but metadata not cached", r.UniqueKey)
	}
	if r.aacSeqHeader != nil {
		if err := r.fw.WriteTag(*r.aacSeqHeader); err != nil {
			return err
		}
	} else {
		nazalog.Warnf("[%s] open segment but aac seq header not cached", r.UniqueKey)
	}
	if r.skipAvcHeaderOnce {
		r.skipAvcHeaderOnce = false
	} else if r.avcSeqHeader != nil {
		if err := r.fw.WriteTag(*r.avcSeqHeader); err != nil {
			return err
		}
	} else {
		nazalog.Warnf("[%s] open segment but video seq header not cached", r.UniqueKey)
	}
	return nil
}

func (r *Recorder) closeSegment() error {
	if r.fw == nil {
		return nil
	}
	nazalog.Infof("[%s] close segment. size=%d", r.UniqueKey, r.fw.Size())
	err := r.fw.Dispose()
	r.fw = nil
	r.segStartTsOk = false
	return err
}
