package domain

import (
	"errors"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sentinel errors: compare with errors.Is()
// ──────────────────────────────────────────────────────────────────────────────

// Not-found errors
var (
	// ErrUserNotFound is returned when no user matches the given criteria.
	ErrUserNotFound = errors.New("user not found")

	// ErrLeagueNotFound is returned for an unknown league id or invite code.
	ErrLeagueNotFound = errors.New("league not found")

	// ErrTicketNotFound is returned when no ticket matches the given id.
	ErrTicketNotFound = errors.New("ticket not found")

	// ErrBetNotFound is returned when no bet matches the given id, or the bet
	// belongs to someone else.
	ErrBetNotFound = errors.New("bet not found")
)

// League / membership errors
var (
	// ErrNotAMember is returned when the actor has no membership row in the league.
	ErrNotAMember = errors.New("user is not a member of this league")

	// ErrAccessDenied is returned when a member without the admin flag attempts
	// an admin-only league operation.
	ErrAccessDenied = errors.New("access denied: league admin required")

	// ErrAlreadyMember is returned when joining a league the user already belongs to.
	ErrAlreadyMember = errors.New("user is already a member of this league")

	// ErrLeagueNotActive is returned when joining or betting in a paused or
	// completed league.
	ErrLeagueNotActive = errors.New("league is not active")

	// ErrCreatorCannotLeave is returned when the creator tries to leave or be removed.
	ErrCreatorCannotLeave = errors.New("league creator cannot leave the league")

	// ErrCannotDemoteCreator is returned when demoting the league creator.
	ErrCannotDemoteCreator = errors.New("league creator cannot be demoted")

	// ErrInvalidStartingBalance is returned when the starting balance is outside
	// the configured range.
	ErrInvalidStartingBalance = errors.New("starting balance is out of range")

	// ErrMemberHasPendingBets is returned when a member with unsettled bets
	// leaves or is removed.
	ErrMemberHasPendingBets = errors.New("member still has pending bets in this league")

	// ErrInvalidLeagueStatus is returned for an unrecognised league status.
	ErrInvalidLeagueStatus = errors.New("invalid league status")
)

// Ticket errors
var (
	// ErrInvalidTransition is returned when the ticket state machine rejects a
	// transition, e.g. resolving an already-resolved ticket.
	ErrInvalidTransition = errors.New("invalid ticket status transition")

	// ErrUnknownOption is returned when an option text does not exactly match
	// any option on the ticket.
	ErrUnknownOption = errors.New("option does not exist on this ticket")

	// ErrDuplicateOption is returned when an option text already exists on the ticket.
	ErrDuplicateOption = errors.New("option already exists on this ticket")

	// ErrTooFewOptions is returned when a ticket would be left with fewer than
	// MinTicketOptions options.
	ErrTooFewOptions = errors.New("ticket needs at least two options")

	// ErrTooManyOptions is returned when a ticket would exceed MaxTicketOptions.
	ErrTooManyOptions = errors.New("ticket has too many options")

	// ErrInvalidTarget is returned for an over/under target outside 0.5–1000.
	ErrInvalidTarget = errors.New("over/under target is out of range")

	// ErrInvalidTicketType is returned for an unrecognised ticket type.
	ErrInvalidTicketType = errors.New("invalid ticket type")

	// ErrBettingClosed is returned when the ticket is not open or its deadline
	// has passed.
	ErrBettingClosed = errors.New("betting is closed for this ticket")
)

// Bet / ledger errors
var (
	// ErrInvalidStake is returned for a non-positive stake or negative credit.
	ErrInvalidStake = errors.New("stake must be greater than zero")

	// ErrInvalidOdds is returned when odds are below 1.0, or outside the
	// authoring range when creating tickets.
	ErrInvalidOdds = errors.New("invalid odds")

	// ErrStakeOutOfRange is returned when a stake is outside the configured
	// min/max bet.
	ErrStakeOutOfRange = errors.New("stake is outside the allowed bet range")

	// ErrInsufficientFunds is returned when the stake exceeds the member's
	// current league balance.
	ErrInsufficientFunds = errors.New("insufficient league balance")

	// ErrDuplicateBet is returned when the member already holds a bet on the ticket.
	ErrDuplicateBet = errors.New("a bet on this ticket already exists")

	// ErrBetNotCancellable is returned when cancelling a bet that is no longer pending.
	ErrBetNotCancellable = errors.New("only pending bets can be cancelled")
)

// User errors
var (
	// ErrEmailTaken is returned on registration when the email already exists.
	ErrEmailTaken = errors.New("email address is already registered")

	// ErrUsernameTaken is returned on registration when the username already exists.
	ErrUsernameTaken = errors.New("username is already taken")

	// ErrInvalidCredentials is returned when login credentials are wrong.
	ErrInvalidCredentials = errors.New("invalid username/email or password")

	// ErrUserInactive is returned when a deactivated user attempts an action.
	ErrUserInactive = errors.New("user account is inactive")
)

// Auth errors
var (
	// ErrUnauthorized is returned when a valid token is not present.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden is returned when the authenticated user lacks the required role.
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	// ErrTokenExpired is returned when a JWT or refresh token has passed its TTL.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid is returned when a token cannot be parsed or its signature
	// does not match.
	ErrTokenInvalid = errors.New("token is invalid")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// notFoundErrors collects all "entity not found" sentinel errors so that
// IsNotFound can stay in sync automatically.
var notFoundErrors = []error{
	ErrUserNotFound,
	ErrLeagueNotFound,
	ErrTicketNotFound,
	ErrBetNotFound,
}

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsNotFound returns true when err (or any error in its chain) is one of the
// domain "not found" errors. Use this instead of comparing error values directly
// when you need to translate domain errors to HTTP 404 responses.
func IsNotFound(err error) bool {
	return isAny(err, notFoundErrors)
}

// IsConflict returns true for errors that represent a state conflict (e.g.
// duplicate registration, a second bet, or double-resolution).
func IsConflict(err error) bool {
	return isAny(err, []error{
		ErrEmailTaken,
		ErrUsernameTaken,
		ErrAlreadyMember,
		ErrDuplicateBet,
		ErrDuplicateOption,
		ErrInvalidTransition,
		ErrBettingClosed,
		ErrBetNotCancellable,
		ErrLeagueNotActive,
		ErrMemberHasPendingBets,
	})
}

// IsAccessError returns true when the actor is authenticated but lacks league
// membership or the league admin flag.
func IsAccessError(err error) bool {
	return isAny(err, []error{
		ErrNotAMember,
		ErrAccessDenied,
		ErrCreatorCannotLeave,
		ErrCannotDemoteCreator,
	})
}

// IsValidation returns true for numeric or shape validation failures on input.
func IsValidation(err error) bool {
	return isAny(err, []error{
		ErrInvalidStake,
		ErrInvalidOdds,
		ErrStakeOutOfRange,
		ErrUnknownOption,
		ErrTooFewOptions,
		ErrTooManyOptions,
		ErrInvalidTarget,
		ErrInvalidTicketType,
		ErrInvalidStartingBalance,
		ErrInvalidLeagueStatus,
	})
}

// IsAuthError returns true for authentication/authorisation errors.
func IsAuthError(err error) bool {
	return isAny(err, []error{
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidCredentials,
		ErrUserInactive,
	})
}
