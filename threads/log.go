/*
Copyright (C) 2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package threads

import "strings"
import "github.com/launix-de/go-mysqlstack/xlog"

var Log *xlog.Log = xlog.NewStdLog(xlog.Level(xlog.INFO))

func SetLogLevel(name string) {
	level := xlog.INFO
	switch strings.ToLower(name) {
	case "debug":
		level = xlog.DEBUG
	case "warning", "warn":
		level = xlog.WARNING
	case "error":
		level = xlog.ERROR
	case "info", "":
	default:
		panic("unknown log level: " + name)
	}
	Log = xlog.NewStdLog(xlog.Level(level))
}
