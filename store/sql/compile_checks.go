package sqlstore

var _ DataStore = (*Store)(nil)
