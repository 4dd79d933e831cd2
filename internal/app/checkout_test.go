package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/cinearenas/booking-engine/internal/mocks"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CheckoutTestSuite struct {
	suite.Suite
	app      *Application
	catalog  *mocks.MockCatalog
	ledger   *mocks.MockSalesLedger
	provider *mocks.MockPaymentProvider
}

func (s *CheckoutTestSuite) SetupTest() {
	s.catalog = new(mocks.MockCatalog)
	s.ledger = new(mocks.MockSalesLedger)
	s.provider = new(mocks.MockPaymentProvider)

	s.app = newTestApplication(s.catalog, s.ledger, func(a *Application) {
		a.provider = s.provider
	})
}

func TestCheckoutSuite(t *testing.T) {
	suite.Run(t, new(CheckoutTestSuite))
}

// createHold places a hold over the route so the engine owns it like in
// production.
func (s *CheckoutTestSuite) createHold(seats ...string) HoldResponse {
	s.catalog.On("SeatLayout", mock.Anything, int64(1)).Return(seatIDs(s.T(), "A1", "A2", "A3"), nil)
	s.ledger.On("ReservedSeats", mock.Anything, int64(1)).Return([]domain.SeatID{}, nil)

	w, r := executeRequest(s.T(), http.MethodPost, "/showtimes/1/holds",
		CreateHoldRequest{Seats: seats, RequesterRef: "kiosk-1"})
	s.app.routes().ServeHTTP(w, r)
	s.Require().Equal(http.StatusCreated, w.Code)

	var hold HoldResponse
	s.Require().NoError(json.NewDecoder(w.Body).Decode(&hold))

	return hold
}

func (s *CheckoutTestSuite) mockShowtimeDetails() {
	s.catalog.On("GetShowtime", mock.Anything, int64(1)).Return(&domain.Showtime{
		ID:         1,
		MovieTitle: "Blade Runner",
		HallName:   "Sala 1",
		Format:     "2D",
		SeatPrice:  decimal.NewFromInt(100),
	}, nil)
}

func (s *CheckoutTestSuite) TestCreateCheckoutSessionHandler() {
	s.Run("should fail when hold ID is not a UUID", func() {
		s.SetupTest()

		w, r := executeRequest(s.T(), http.MethodPost, "/holds/not-a-uuid/checkout",
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("should fail when hold does not exist", func() {
		s.SetupTest()

		w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", uuid.New()),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusNotFound, w.Code)
	})

	s.Run("should fail when email is invalid", func() {
		s.SetupTest()
		hold := s.createHold("A1")

		w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "not-an-email"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusUnprocessableEntity, w.Code)

		checkErrorResponse(s.T(), w, struct {
			wantStatus     int
			wantErrMessage string
		}{
			wantStatus:     http.StatusUnprocessableEntity,
			wantErrMessage: "must be a valid email address",
		})
	})

	s.Run("should fail when hold is no longer active", func() {
		s.SetupTest()
		hold := s.createHold("A1")
		s.mockShowtimeDetails()

		w, r := executeRequest(s.T(), http.MethodDelete, fmt.Sprintf("/holds/%s", hold.HoldId), nil)
		s.app.routes().ServeHTTP(w, r)
		s.Require().Equal(http.StatusNoContent, w.Code)

		w, r = executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusConflict, w.Code)
	})

	s.Run("should fail when the payment provider errors", func() {
		s.SetupTest()
		hold := s.createHold("A1")
		s.mockShowtimeDetails()

		s.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, fmt.Errorf("provider unavailable"))

		w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusInternalServerError, w.Code)
	})

	s.Run("should price the checkout per seat and hand off to the provider", func() {
		s.SetupTest()
		hold := s.createHold("A1", "A2")
		s.mockShowtimeDetails()

		s.provider.On("CreateCheckoutSession",
			mock.Anything,
			mock.MatchedBy(func(intent domain.PaymentIntent) bool {
				return intent.Amount.Equal(decimal.NewFromInt(200)) && intent.Status == domain.IntentPending
			}),
			mock.Anything,
			seatIDs(s.T(), "A1", "A2"),
		).Return(&domain.CheckoutSession{
			Reference:   "ref-123",
			RedirectURL: "http://payment.url",
		}, nil)

		w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Require().Equal(http.StatusOK, w.Code)

		var response CheckoutResponse
		s.Require().NoError(json.NewDecoder(w.Body).Decode(&response))

		s.Equal("ref-123", response.Reference)
		s.Equal("http://payment.url", response.RedirectUrl)
		s.True(response.Amount.Equal(decimal.NewFromInt(200)))

		s.provider.AssertExpectations(s.T())
	})

	s.Run("should reject a second checkout for the same hold", func() {
		s.SetupTest()
		hold := s.createHold("A1")
		s.mockShowtimeDetails()

		s.provider.On("CreateCheckoutSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(&domain.CheckoutSession{Reference: "ref-123", RedirectURL: "http://payment.url"}, nil)

		w, r := executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)
		s.Require().Equal(http.StatusOK, w.Code)

		w, r = executeRequest(s.T(), http.MethodPost, fmt.Sprintf("/holds/%s/checkout", hold.HoldId),
			CheckoutRequest{Email: "payer@example.com"})
		s.app.routes().ServeHTTP(w, r)

		s.Equal(http.StatusConflict, w.Code)
	})
}
