package ews

import "ewscal/internal/models"

// itemFields are the properties shared by every EWS item.
// see: https://msdn.microsoft.com/en-us/library/aa580790(v=exchg.140).aspx
var itemFields = []models.Field{
	{Name: "mime_content", URI: "item:MimeContent", Kind: models.KindBinary},
	{Name: "item_id", URI: "item:ItemId", Kind: models.KindItemID, ReadOnly: true},
	{Name: "parent_folder_id", URI: "item:ParentFolderId", Kind: models.KindItemID, ReadOnly: true},
	{Name: "item_class", URI: "item:ItemClass", Kind: models.KindString},
	{Name: "subject", URI: "item:Subject", Kind: models.KindString},
	{Name: "sensitivity", URI: "item:Sensitivity", Kind: models.KindString},
	{Name: "body", URI: "item:Body", Kind: models.KindBody},
	{Name: "attachments", URI: "item:Attachments", Kind: models.KindAttachments},
	{Name: "date_time_received", URI: "item:DateTimeReceived", Kind: models.KindDateTime, ReadOnly: true},
	{Name: "size", URI: "item:Size", Kind: models.KindInt, ReadOnly: true},
	{Name: "categories", URI: "item:Categories", Kind: models.KindStrings},
	{Name: "importance", URI: "item:Importance", Kind: models.KindString},
	{Name: "in_reply_to", URI: "item:InReplyTo", Kind: models.KindString},
	{Name: "is_submitted", URI: "item:IsSubmitted", Kind: models.KindBool, ReadOnly: true},
	{Name: "is_draft", URI: "item:IsDraft", Kind: models.KindBool, ReadOnly: true},
	{Name: "is_from_me", URI: "item:IsFromMe", Kind: models.KindBool, ReadOnly: true},
	{Name: "is_resend", URI: "item:IsResend", Kind: models.KindBool, ReadOnly: true},
	{Name: "is_unmodified", URI: "item:IsUnmodified", Kind: models.KindBool, ReadOnly: true},
	{Name: "internet_message_headers", URI: "item:InternetMessageHeaders", Kind: models.KindHeaders, ReadOnly: true},
	{Name: "date_time_sent", URI: "item:DateTimeSent", Kind: models.KindDateTime, ReadOnly: true},
	{Name: "date_time_created", URI: "item:DateTimeCreated", Kind: models.KindDateTime, ReadOnly: true},
	{Name: "response_objects", URI: "item:ResponseObjects", Kind: models.KindExtended, ReadOnly: true},
	{Name: "reminder_due_by", URI: "item:ReminderDueBy", Kind: models.KindDateTime},
	{Name: "reminder_is_set", URI: "item:ReminderIsSet", Kind: models.KindBool},
	{Name: "reminder_minutes_before_start", URI: "item:ReminderMinutesBeforeStart", Kind: models.KindInt},
	{Name: "display_cc", URI: "item:DisplayCc", Kind: models.KindString, ReadOnly: true},
	{Name: "display_to", URI: "item:DisplayTo", Kind: models.KindString, ReadOnly: true},
	{Name: "has_attachments", URI: "item:HasAttachments", Kind: models.KindBool, ReadOnly: true},
	{Name: "extended_property", URI: "item:ExtendedProperty", Kind: models.KindExtended},
	{Name: "culture", URI: "item:Culture", Kind: models.KindString},
	{Name: "effective_rights", URI: "item:EffectiveRights", Kind: models.KindExtended, ReadOnly: true},
	{Name: "last_modified_name", URI: "item:LastModifiedName", Kind: models.KindString, ReadOnly: true},
	{Name: "last_modified_time", URI: "item:LastModifiedTime", Kind: models.KindDateTime, ReadOnly: true},
	{Name: "is_associated", URI: "item:IsAssociated", Kind: models.KindBool},
	{Name: "web_client_read_form_query_string", URI: "item:WebClientReadFormQueryString", Kind: models.KindString, ReadOnly: true},
	{Name: "web_client_edit_form_query_string", URI: "item:WebClientEditFormQueryString", Kind: models.KindString, ReadOnly: true},
	{Name: "conversation_id", URI: "item:ConversationId", Kind: models.KindItemID, ReadOnly: true},
	{Name: "unique_body", URI: "item:UniqueBody", Kind: models.KindBody, ReadOnly: true},
}

// messageFields extend itemFields for EWS Message elements.
// see: https://msdn.microsoft.com/en-us/library/aa494306(v=exchg.140).aspx
var messageFields = []models.Field{
	{Name: "sender", URI: "message:Sender", Kind: models.KindMailbox},
	{Name: "to_recipients", URI: "message:ToRecipients", Kind: models.KindMailboxes},
	{Name: "cc_recipients", URI: "message:CcRecipients", Kind: models.KindMailboxes},
	{Name: "bcc_recipients", URI: "message:BccRecipients", Kind: models.KindMailboxes},
	{Name: "is_read_receipt_requested", URI: "message:IsReadReceiptRequested", Kind: models.KindBool},
	{Name: "is_delivery_receipt_requested", URI: "message:IsDeliveryReceiptRequested", Kind: models.KindBool},
	{Name: "conversation_index", URI: "message:ConversationIndex", Kind: models.KindBinary, ReadOnly: true},
	{Name: "conversation_topic", URI: "message:ConversationTopic", Kind: models.KindString, ReadOnly: true},
	{Name: "from", URI: "message:From", Kind: models.KindMailbox},
	{Name: "internet_message_id", URI: "message:InternetMessageId", Kind: models.KindString, ReadOnly: true},
	{Name: "is_read", URI: "message:IsRead", Kind: models.KindBool},
	{Name: "is_response_requested", URI: "message:IsResponseRequested", Kind: models.KindBool},
	{Name: "references", URI: "message:References", Kind: models.KindString},
	{Name: "reply_to", URI: "message:ReplyTo", Kind: models.KindMailboxes},
	{Name: "received_by", URI: "message:ReceivedBy", Kind: models.KindMailbox},
	{Name: "received_representing", URI: "message:ReceivedRepresenting", Kind: models.KindMailbox},
}

// calendarFields extend itemFields for EWS CalendarItem elements. Recurrence
// properties are deliberately absent.
var calendarFields = []models.Field{
	{Name: "uid", URI: "calendar:UID", Kind: models.KindString},
	{Name: "start", URI: "calendar:Start", Kind: models.KindDateTime},
	{Name: "end", URI: "calendar:End", Kind: models.KindDateTime},
	{Name: "location", URI: "calendar:Location", Kind: models.KindString},
	{Name: "is_all_day_event", URI: "calendar:IsAllDayEvent", Kind: models.KindBool},
	{Name: "legacy_free_busy_status", URI: "calendar:LegacyFreeBusyStatus", Kind: models.KindString},
	{Name: "organizer", URI: "calendar:Organizer", Kind: models.KindMailbox, ReadOnly: true},
	{Name: "required_attendees", URI: "calendar:RequiredAttendees", Kind: models.KindAttendees},
	{Name: "optional_attendees", URI: "calendar:OptionalAttendees", Kind: models.KindAttendees},
	{Name: "resources", URI: "calendar:Resources", Kind: models.KindAttendees},
	{Name: "is_meeting", URI: "calendar:IsMeeting", Kind: models.KindBool, ReadOnly: true},
	{Name: "is_cancelled", URI: "calendar:IsCancelled", Kind: models.KindBool, ReadOnly: true},
	{Name: "my_response_type", URI: "calendar:MyResponseType", Kind: models.KindString, ReadOnly: true},
}

var (
	// MessageSchema is the data dictionary of an EWS Message.
	MessageSchema = models.NewSchema("Message", itemFields, messageFields)

	// CalendarItemSchema is the data dictionary of an EWS CalendarItem.
	CalendarItemSchema = models.NewSchema("CalendarItem", itemFields, calendarFields)
)
