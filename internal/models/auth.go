package models

// View restriction types
const (
	RestrictionNone   = "none"
	RestrictionLogin  = "login"
	RestrictionGroups = "groups"
)

// Page permission types
const (
	PermissionAdd     = "add"
	PermissionChange  = "change"
	PermissionPublish = "publish"
)

// Group is a named set of users. Group names match the roles carried by the
// session of the authorizer service.
type Group struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:150;uniqueIndex;not null" json:"name" validate:"required,max=150"`
}

// TableName overrides the table name for Group
func (Group) TableName() string {
	return "auth_groups"
}

// PageViewRestriction gates the visibility of a page and its descendants
type PageViewRestriction struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	PageID          uint    `gorm:"uniqueIndex;not null" json:"page_id"`
	RestrictionType string  `gorm:"size:20;not null" json:"restriction_type" validate:"oneof=login groups"`
	Groups          []Group `gorm:"many2many:page_view_restriction_groups;" json:"groups"`
}

// TableName overrides the table name for PageViewRestriction
func (PageViewRestriction) TableName() string {
	return "page_view_restrictions"
}

// GroupNames lists the names of the groups admitted by the restriction
func (r *PageViewRestriction) GroupNames() []string {
	names := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		names = append(names, g.Name)
	}
	return names
}

// GroupPagePermission grants a group a permission on a page and its descendants
type GroupPagePermission struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	GroupID    uint   `gorm:"not null;index:idx_group_page_permission,unique" json:"group_id"`
	Group      Group  `json:"group" validate:"-"`
	PageID     uint   `gorm:"not null;index:idx_group_page_permission,unique" json:"page_id"`
	Permission string `gorm:"size:20;not null;index:idx_group_page_permission,unique" json:"permission" validate:"oneof=add change publish"`
}

// TableName overrides the table name for GroupPagePermission
func (GroupPagePermission) TableName() string {
	return "group_page_permissions"
}
