package constants

import "time"

const (
	// Commands.
	ManageCommandName      = "manage"
	GetRobloxIDCommandName = "get-roblox-id"
	UltraBanCommandName    = "ultra-ban"
	UnUltraBanCommandName  = "un-ultra-ban"
	PingCommandName        = "ping"
	AlertCommandName       = "salert"

	// Command options.
	RobloxUsernameOptionName = "roblox_username"
	UserOptionName           = "user"
	ReasonOptionName         = "reason"
	RoleOptionName           = "role"

	// Common.
	CustomIDSeparator   = ":"
	ReasonInputCustomID = "reason"
	DefaultEmbedColor   = 0x3498DB
	InfoEmbedColor      = 0x5865F2

	// Manage Menu.
	ManageModalCustomID       = "modal"
	ManageSelectEmptyValue    = "placeholder"
	MaxSelectOptions          = 25
	MaxSelectDescriptionRunes = 100

	// Role alert.
	AlertTitleInputCustomID = "title"
	AlertBodyInputCustomID  = "body"
	MaxAlertTitleLength     = 256
	MaxAlertBodyLength      = 4000
	AlertLockMargin         = 5 * time.Minute

	// Cross-server ban prompt.
	ConfirmButtonCustomID = "yes"
	DenyButtonCustomID    = "no"
	ConfirmPromptTimeout  = 60 * time.Second
)

// User facing messages.
const (
	UserNotFoundMessage       = "I couldn't find a Roblox user with that username."
	PermissionDeniedMessage   = "You need the Administrator permission to use this command."
	GuildOnlyMessage          = "This command can only be used in a server."
	NotSessionOwnerMessage    = "Only the person who opened this prompt can use it."
	SessionClosedMessage      = "This prompt has ended. Run the command again to continue."
	PromptTimedOutMessage     = "The reason prompt timed out. Please try again."
	CancelledPromptMessage    = "Cancelled prompt."
	CancelledMessage          = "Cancelled."
	UnknownCommandMessage     = "This command is not available."
	InternalErrorMessage      = "Internal error. Please report this to an administrator."
	StoreFailedMessage        = "The change could not be saved. Please try again."
	RemovedWarningMessage     = "Successfully removed the warning."
	KickedMessageFormat       = "Successfully kicked %s from the server."
	KickTooLargeMessage       = "The kick could not be sent to game servers. Please use a shorter reason."
	BannedMessageFormat       = "Successfully banned %s from the game."
	UnbannedMessageFormat     = "Successfully unbanned %s from the game."
	WarnedMessageFormat       = "Successfully warned %s."
	RobloxIDMessageFormat     = "The user's Roblox ID: `%d`"
	UltraBanPromptFormat      = "**%s** will be banned from %d servers, are you sure you want to do this? **This action is irreversible.**"
	UnUltraBanPromptFormat    = "**%s** will be unbanned from %d servers, are you sure you want to do this?"
	UltraBanProgressFormat    = "Banning %s from all servers... This may take a few seconds."
	UnUltraBanProgressFormat  = "Unbanning %s from all servers... This may take a few seconds."
	UltraBanDoneFormat        = "Successfully banned %s from %d servers."
	UnUltraBanDoneFormat      = "Successfully unbanned %s from %d servers."
	GuildFailuresSuffixFormat = " Failed in %d servers."
	LookupFailedMessage       = "Roblox could not be reached. Please try again later."
	PromptUnavailableMessage  = "This prompt has ended or belongs to someone else."
	PromptStoreFailedMessage  = "Failed to create the confirmation prompt."
	SessionStartFailedMessage = "Failed to start the manage session."
	AlertRunningMessage       = "There is already an alert being currently sent."
	AlertInvalidMessage       = "Alert titles can be at most 256 characters and messages at most 4000."
	NoRoleMembersMessage      = "There are no members with that role."
	MemberListFailedMessage   = "Failed to fetch the members of that role."
	AlertStartedFormat        = "Started DMing operation, this may take approximately %s..."
	AlertDoneFormat           = "Successfully sent the alert to %d members."
	AlertFailuresSuffixFormat = " Could not reach %d members."
)
