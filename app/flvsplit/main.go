// Copyright 2023, Chef.  All rights reserved.
// https://github.com/q191201771/liverec
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/q191201771/liverec/pkg/flv"
	"github.com/q191201771/liverec/pkg/record"
	"github.com/q191201771/naza/pkg/nazalog"
)

// 将本地flv文件按大小或时长切分成多个独立可播放的flv文件

func main() {
	_ = nazalog.Init(func(option *nazalog.Option) {
		option.AssertBehavior = nazalog.AssertFatal
	})
	defer nazalog.Sync()

	flvFileName, outPath, maxSize, maxDurationMs := parseFlag()

	var ffr flv.FlvFileReader
	err := ffr.Open(flvFileName)
	nazalog.Assert(nil, err)
	defer ffr.Dispose()

	_, err = ffr.ReadFlvHeader()
	nazalog.Assert(nil, err)

	streamName := strings.TrimSuffix(filepath.Base(flvFileName), ".flv")
	r := record.NewRecorder(func(option *record.Option) {
		option.OutPath = outPath
		option.StreamName = streamName
		option.MaxFileSizeBytes = uint64(maxSize)
		option.MaxDurationMs = uint32(maxDurationMs)
	})

	for {
		tag, err := ffr.ReadTag()
		if err == io.EOF {
			break
		}
		nazalog.Assert(nil, err)
		err = r.WriteTag(tag)
		nazalog.Assert(nil, err)
	}

	err = r.Dispose()
	nazalog.Assert(nil, err)
	for _, filename := range r.Filenames() {
		nazalog.Infof("output file. filename=%s", filename)
	}
}

func parseFlag() (string, string, int, int) {
	i := flag.String("i", "", "specify flv file")
	o := flag.String("o", ".", "specify output dir")
	s := flag.Int("s", 0, "specify max size in bytes of each segment, 0 means unlimited")
	d := flag.Int("d", 0, "specify max duration in millisecond of each segment, 0 means unlimited")
	flag.Parse()
	if *i == "" {
		flag.Usage()
		os.Exit(1)
	}
	return *i, *o, *s, *d
}
