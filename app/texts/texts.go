// Package texts holds user-facing labels and reply templates.
package texts

import (
	"fmt"
	"strings"
)

// Menu labels.
const (
	LabelSubmit = "Submit a photo"
	LabelDelete = "Delete a photo"
	LabelRules  = "Rules"
	LabelCancel = "Cancel"
)

// Replies.
const (
	PromptPhoto        = "Send a photo (as a photo, not as a file)."
	PromptCaption      = "Add a caption:"
	PromptDeletionCode = "Enter the deletion code:"
	UseMenu            = "Use the menu to publish a photo."
	Cancelled          = "Cancelled. Use the menu to publish a photo."
	Unsupported        = "This type of content cannot be published.\nUse the menu to publish a photo."
	Published          = "Your photo has been published!"
	CodeHeader         = "Deletion code:"
	Deleted            = "The photo has been deleted."
	CodeNotFound       = "No photo matches this code."
	DeleteFailed       = "Could not delete the photo."
	TryAgain           = "Something went wrong. Please try again later."
	AuthorLine         = "Author: %s"
)

// IsCancel reports whether text is the cancel label, ignoring case and surrounding spaces.
func IsCancel(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), LabelCancel)
}

// Welcome greets a user on /start.
func Welcome(channelTitle, groupTitle string) string {
	return fmt.Sprintf("Hi!\nI am the bot of the \"%s\" channel.\n"+
		"Read the rules before publishing.\n"+
		"Use the menu to publish a photo.\n"+
		"Publishing is open to members of the \"%s\" group only.", channelTitle, groupTitle)
}

// NotMember explains the membership requirement. groupLink is already rendered HTML.
func NotMember(groupLink string) string {
	return "Publishing to the gallery is open to members of the " + groupLink + " group only."
}

// OrphanAlert tells the admin about a publication whose deletion code was lost.
func OrphanAlert(channelID int64, messageID int, userID int64) string {
	return fmt.Sprintf("Published message %d in chat %d has no deletion code (submitted by user %d). Remove it by hand if requested.",
		messageID, channelID, userID)
}

// Rules lists publishing requirements for the given group title.
func Rules(groupTitle string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Publishing is open to members of the \"%s\" group only.\n\n", groupTitle)
	b.WriteString("Photo requirements:\n")
	b.WriteString("1. Photos or scans of analog prints made with the classic gelatin silver process or any alternative process are allowed.\n")
	b.WriteString("2. Film scans are allowed when the scan is a finished work the author distributes digitally.\n")
	b.WriteString("3. Photos or scans of alternative-process prints made from digital negatives are allowed.\n")
	b.WriteString("4. A photographed print must fill at least 95% of the frame. Keep perspective distortion to a minimum.\n")
	b.WriteString("5. Snapshots and photos with no artistic value (such as test shots) are not allowed.\n")
	b.WriteString("6. Digital photos are not allowed.\n")
	b.WriteString("7. Advertising, spam, insults, political calls and unlawful material are not allowed.\n\n")
	b.WriteString("Caption requirements:\n")
	b.WriteString("1. Add a short description of the camera, film, printing technique and anything else you want to share about the work.\n")
	b.WriteString("2. The author is added to the caption automatically.\n")
	b.WriteString("3. Do not mention any labs, even if they developed or scanned the photo.\n")
	b.WriteString("4. Advertising, spam, insults, political calls and unlawful material are not allowed.\n\n")
	b.WriteString("Photos that break these rules are removed.\n")
	b.WriteString("Members who break the rules repeatedly are removed from the group.")
	return b.String()
}
