package domain

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

type SeatStatus string

const (
	SeatFree     SeatStatus = "free"
	SeatHeld     SeatStatus = "held"
	SeatReserved SeatStatus = "reserved"
)

// SeatID identifies a seat within a showtime's hall layout. Seats never
// exist independently of a showtime, so the showtime id is carried by the
// surrounding hold or record rather than by the seat itself.
type SeatID struct {
	Row    string
	Number int
}

func (s SeatID) String() string {
	return fmt.Sprintf("%s%d", s.Row, s.Number)
}

type Seat struct {
	ID     SeatID
	Status SeatStatus
}

var seatLabelRgx = regexp.MustCompile(`^([A-Z]{1,2})([1-9][0-9]{0,2})$`)

// ParseSeatID parses labels of the form "A1" or "AB12".
func ParseSeatID(label string) (SeatID, error) {
	matches := seatLabelRgx.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(label)))
	if matches == nil {
		return SeatID{}, fmt.Errorf("%w: invalid seat label %q", ErrInvalidRequest, label)
	}

	number, err := strconv.Atoi(matches[2])
	if err != nil {
		return SeatID{}, fmt.Errorf("%w: invalid seat label %q", ErrInvalidRequest, label)
	}

	return SeatID{Row: matches[1], Number: number}, nil
}

// SortSeatIDs orders seats by row, then number, in place.
func SortSeatIDs(seats []SeatID) {
	sort.Slice(seats, func(i, j int) bool {
		if seats[i].Row != seats[j].Row {
			return seats[i].Row < seats[j].Row
		}
		return seats[i].Number < seats[j].Number
	})
}

func SeatLabels(seats []SeatID) []string {
	labels := make([]string, len(seats))
	for i, s := range seats {
		labels[i] = s.String()
	}
	return labels
}
