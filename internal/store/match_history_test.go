package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/openmohaa/matchmaker/internal/models"
)

func testMatch() *models.Match {
	return &models.Match{
		MatchID:   "m1",
		TitleID:   "mohaa",
		QueueName: "ranked",
		Players: []models.MatchPlayer{
			{PlayerID: "p1", TicketID: "t1", TeamID: "allies", Attributes: models.Attributes{"skillRating": 1500.0}, EnqueuedAt: t0},
			{PlayerID: "p2", TicketID: "t2", TeamID: "axis", EnqueuedAt: t0.Add(20 * time.Second)},
		},
		ServerInfo: models.ServerInfo{Host: "10.0.0.5", Port: 12203, Region: "eu-west"},
		CreatedAt:  t0.Add(30 * time.Second),
	}
}

func TestHistoryRows(t *testing.T) {
	rows := HistoryRows(testMatch())
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].WaitSeconds != 30 || rows[1].WaitSeconds != 10 {
		t.Errorf("wait seconds = %v, %v; want 30, 10", rows[0].WaitSeconds, rows[1].WaitSeconds)
	}
	if rows[0].SkillRating != 1500 || rows[1].SkillRating != 0 {
		t.Errorf("skill = %v, %v", rows[0].SkillRating, rows[1].SkillRating)
	}
	if rows[1].ServerPort != 12203 || rows[1].Region != "eu-west" {
		t.Errorf("server columns = %+v", rows[1])
	}
}

func TestMatchHistory_Record(t *testing.T) {
	conn := &MockClickHouseConn{}
	h := NewMatchHistory(conn)

	if err := h.Record(context.Background(), testMatch()); err != nil {
		t.Fatalf("Record error: %v", err)
	}
	if !conn.Batch.Sent {
		t.Error("batch not sent")
	}
	if len(conn.Batch.Appended) != 2 {
		t.Fatalf("appended %d rows, want 2", len(conn.Batch.Appended))
	}
	if conn.Batch.Appended[1][3] != "p2" {
		t.Errorf("player column = %v, want p2", conn.Batch.Appended[1][3])
	}
}

func TestMatchHistory_RecordErrors(t *testing.T) {
	conn := &MockClickHouseConn{PrepareErr: errors.New("clickhouse down")}
	if err := NewMatchHistory(conn).Record(context.Background(), testMatch()); err == nil {
		t.Error("expected prepare error")
	}

	conn = &MockClickHouseConn{Batch: &MockBatch{SendErr: errors.New("timeout")}}
	if err := NewMatchHistory(conn).Record(context.Background(), testMatch()); err == nil {
		t.Error("expected send error")
	}
}
