package board

import apperrors "github.com/taskboard/server/internal/shared/errors"

// Lookup failures returned by the repository.
var (
	ErrBoardNotFound  = apperrors.NotFound("board")
	ErrListNotFound   = apperrors.NotFound("list")
	ErrCardNotFound   = apperrors.NotFound("card")
	ErrMemberNotFound = apperrors.NotFound("member")
)

var (
	errNoAccess          = apperrors.Forbidden("no access to board")
	errListOffBoard      = apperrors.Forbidden("list does not belong to this board")
	errCardOffBoard      = apperrors.Forbidden("card does not belong to this board")
	errListBoardMove     = apperrors.Forbidden("lists cannot move to another board")
	errOwnerAsMember     = apperrors.Conflict("user owns the board")
	errAlreadyMember     = apperrors.Conflict("user is already a member of the board")
	errCardContended     = apperrors.Conflict("card is being moved, retry the request")
	errInvalidMemberRole = apperrors.BadRequest("role must be admin, member or viewer")
)
