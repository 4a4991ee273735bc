// Copyright 2025 Arcade Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// getFileLogWriter builds the rotating WriteSyncer strandctl's scenario
// runs log to when Conf.Output is "file": the scenarios' own start,
// progress and finish lines plus the panic-recovery lines pkg/safe
// writes, which can add up across a long-running pipeline or pingpong
// scenario, so
// rotation is mandatory rather than optional.
func getFileLogWriter(config *Conf) (zapcore.WriteSyncer, error) {
	if err := os.MkdirAll(config.Path, 0755); err != nil {
		return nil, fmt.Errorf("create log directory %s: %w", config.Path, err)
	}

	logPath := filepath.Join(config.Path, config.Filename)

	lumberJackLogger := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    config.RotateSize,
		MaxBackups: config.RotateNum,
		MaxAge:     config.KeepDays,
		Compress:   true,
	}

	return zapcore.AddSync(lumberJackLogger), nil
}
