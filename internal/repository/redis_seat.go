package repository

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/metinatakli/cinex-seat-engine/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Seats of a screening live in one hash, field = seat label,
// value = "status|holdID|updatedAtMillis".
var transitionSeatScript = redis.NewScript(`
    -- KEYS = [seat hash key]
    -- ARGV = [seat label, from, to, owner to check, new hold id, now millis]

    local current = redis.call("HGET", KEYS[1], ARGV[1])
    if not current then
        return 0
    end

    local status, hold = string.match(current, "^([^|]*)|([^|]*)|")
    if status ~= ARGV[2] then
        return 0
    end

    if ARGV[4] ~= "" and hold ~= ARGV[4] then
        return 0
    end

    if ARGV[3] == "available" then
        hold = ""
    elseif ARGV[5] ~= "" then
        hold = ARGV[5]
    end

    redis.call("HSET", KEYS[1], ARGV[1], ARGV[3] .. "|" .. hold .. "|" .. ARGV[6])
    return 1
`)

type RedisSeatStore struct {
	client redis.UniversalClient
	sink   domain.SeatEventSink
	now    func() time.Time
}

func NewRedisSeatStore(client redis.UniversalClient, sink domain.SeatEventSink) *RedisSeatStore {
	if sink == nil {
		sink = domain.NopSeatEventSink{}
	}

	return &RedisSeatStore{
		client: client,
		sink:   sink,
		now:    time.Now,
	}
}

func seatHashKey(screeningID int) string {
	return fmt.Sprintf("seat_state:%d", screeningID)
}

func (r *RedisSeatStore) Init(ctx context.Context, screeningID int, seats []domain.Seat) error {
	now := r.now()
	pipe := r.client.Pipeline()

	for _, seat := range seats {
		if seat.ScreeningID != screeningID {
			return fmt.Errorf("seat %s belongs to screening %d, not %d", seat.ID, seat.ScreeningID, screeningID)
		}

		status := seat.Status
		if status == "" {
			status = domain.SeatAvailable
		}

		pipe.HSetNX(ctx, seatHashKey(screeningID), seat.ID.String(), encodeSeatValue(status, "", now))
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (r *RedisSeatStore) GetStatuses(
	ctx context.Context,
	screeningID int,
	seats []domain.SeatID) (map[domain.SeatID]domain.SeatStatus, error) {

	statuses := make(map[domain.SeatID]domain.SeatStatus, len(seats))
	if len(seats) == 0 {
		return statuses, nil
	}

	fields := make([]string, len(seats))
	for i, seat := range seats {
		fields[i] = seat.String()
	}

	values, err := r.client.HMGet(ctx, seatHashKey(screeningID), fields...).Result()
	if err != nil {
		return nil, err
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}

		state, err := decodeSeatValue(seats[i], raw)
		if err != nil {
			return nil, err
		}

		statuses[seats[i]] = state.Status
	}

	return statuses, nil
}

func (r *RedisSeatStore) Get(ctx context.Context, screeningID int, seat domain.SeatID) (domain.SeatState, bool, error) {
	raw, err := r.client.HGet(ctx, seatHashKey(screeningID), seat.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.SeatState{}, false, nil
		}

		return domain.SeatState{}, false, err
	}

	state, err := decodeSeatValue(seat, raw)
	if err != nil {
		return domain.SeatState{}, false, err
	}

	return state, true, nil
}

func (r *RedisSeatStore) List(ctx context.Context, screeningID int) ([]domain.SeatState, error) {
	values, err := r.client.HGetAll(ctx, seatHashKey(screeningID)).Result()
	if err != nil {
		return nil, err
	}

	states := make([]domain.SeatState, 0, len(values))
	for label, raw := range values {
		seat, err := domain.ParseSeatID(label)
		if err != nil {
			return nil, err
		}

		state, err := decodeSeatValue(seat, raw)
		if err != nil {
			return nil, err
		}

		states = append(states, state)
	}

	slices.SortFunc(states, func(a, b domain.SeatState) int {
		return domain.CompareSeatIDs(a.Seat, b.Seat)
	})

	return states, nil
}

func (r *RedisSeatStore) TryTransition(
	ctx context.Context,
	screeningID int,
	seat domain.SeatID,
	from, to domain.SeatStatus,
	holdID string) (bool, error) {

	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to)
	}

	owner := holdID
	if from == domain.SeatAvailable {
		owner = ""
	}

	now := r.now()

	result, err := transitionSeatScript.Run(
		ctx,
		r.client,
		[]string{seatHashKey(screeningID)},
		seat.String(),
		string(from),
		string(to),
		owner,
		holdID,
		now.UnixMilli(),
	).Int()
	if err != nil {
		return false, err
	}

	if result != 1 {
		return false, nil
	}

	r.sink.SeatStateChanged(ctx, domain.SeatStateChanged{
		ScreeningID: screeningID,
		Seat:        seat,
		From:        from,
		To:          to,
		HoldID:      holdID,
		At:          now,
	})

	return true, nil
}

func encodeSeatValue(status domain.SeatStatus, holdID string, at time.Time) string {
	return string(status) + "|" + holdID + "|" + strconv.FormatInt(at.UnixMilli(), 10)
}

func decodeSeatValue(seat domain.SeatID, raw string) (domain.SeatState, error) {
	parts := strings.SplitN(raw, "|", 3)
	if len(parts) != 3 {
		return domain.SeatState{}, fmt.Errorf("malformed state %q for seat %s", raw, seat)
	}

	millis, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return domain.SeatState{}, fmt.Errorf("malformed timestamp %q for seat %s", parts[2], seat)
	}

	return domain.SeatState{
		Seat:      seat,
		Status:    domain.SeatStatus(parts[0]),
		HoldID:    parts[1],
		UpdatedAt: time.UnixMilli(millis),
	}, nil
}
