package snowflake

import (
	"fmt"
	"sync"
	"time"
)

// Session identifiers for websocket connections. Not used for stored
// entities, those carry database-issued identifiers.

const (
	timestampLength int64 = 42
	timestampPos          = 64 - timestampLength
	workerLength    int64 = 10
	workerPos             = timestampPos - workerLength
	incrementLength       = 64 - (timestampLength + workerLength)
)

var (
	maxWorkerValue    = int64(1)<<workerLength - 1
	maxIncrementValue = int64(1)<<incrementLength - 1
)

type Snowflake struct {
	Timestamp int64
	WorkerID  int64
	Increment int64
}

type Generator struct {
	workerID      int64
	mutex         sync.Mutex
	lastTimestamp int64
	lastIncrement int64
}

func NewGenerator(workerID int64) (*Generator, error) {
	if workerID > maxWorkerValue {
		return nil, fmt.Errorf("worker ID value exceeds maximum value of [%d]", maxWorkerValue)
	}
	return &Generator{workerID: workerID}, nil
}

func (g *Generator) Generate() (int64, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	timestamp := time.Now().UnixMilli()
	if timestamp == g.lastTimestamp {
		g.lastIncrement += 1
		if g.lastIncrement > maxIncrementValue {
			return 0, fmt.Errorf("increment overflow after increment reached %d", g.lastIncrement)
		}
	} else {
		g.lastIncrement = 0
		g.lastTimestamp = timestamp
	}

	return timestamp<<timestampPos | g.workerID<<workerPos | g.lastIncrement, nil
}

func Extract(snowflakeId int64) Snowflake {
	return Snowflake{
		Timestamp: snowflakeId >> timestampPos,
		WorkerID:  (snowflakeId >> workerPos) & ((1 << workerLength) - 1),
		Increment: snowflakeId & ((1 << incrementLength) - 1),
	}
}

func ExtractTimestamp(snowflakeId int64) int64 {
	return snowflakeId >> timestampPos
}
